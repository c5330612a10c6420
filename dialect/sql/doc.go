// Package sql runs the queries of generated data access models on MySQL.
//
// A Driver implements runtime.DB: FindOne renders a single-row SELECT with
// squirrel and scans the row into a map keyed by column name. Every
// statement going through a Driver is counted in its QueryStats and logged
// when slower than the configured threshold.
//
//	drv, err := sql.Open("app:secret@tcp(localhost:3306)/app", sql.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//	user := dao.NewUser(drv)
package sql
