package schema

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type (
	// Action is a change applied to a table once every table is built.
	Action interface {
		// Target returns the name of the table the action applies to.
		Target() string
		Apply(*Table) error
	}

	// AddIndex adds an index over the named columns.
	AddIndex struct {
		Table   string
		Name    string
		Columns []string
		Unique  bool
	}

	// SetTableOption sets a table option, overriding the default value.
	SetTableOption struct {
		Table string
		Key   string
		Value string
	}

	// Queue holds the deferred actions in registration order.
	Queue struct {
		actions []Action
	}
)

// Target implements Action.
func (a *AddIndex) Target() string { return a.Table }

// Apply implements Action.
func (a *AddIndex) Apply(t *Table) error {
	for _, c := range a.Columns {
		if !t.HasColumn(c) {
			return errors.Newf("index %q: unknown column %q", a.Name, c)
		}
	}
	if _, ok := t.Index(a.Name); ok {
		return nil
	}
	t.AddIndex(a.Name, a.Unique, a.Columns)
	return nil
}

// Target implements Action.
func (a *SetTableOption) Target() string { return a.Table }

// Apply implements Action.
func (a *SetTableOption) Apply(t *Table) error {
	t.Options = t.Options.Set(a.Key, a.Value)
	return nil
}

// String implements fmt.Stringer.
func (a *SetTableOption) String() string {
	return fmt.Sprintf("%s: %s=%s", a.Table, a.Key, a.Value)
}

// Push appends an action to the queue.
func (q *Queue) Push(a Action) { q.actions = append(q.actions, a) }

// Len returns the number of pending actions.
func (q *Queue) Len() int { return len(q.actions) }

// Drain applies the pending actions in registration order and empties
// the queue.
func (q *Queue) Drain(tables map[string]*Table) error {
	actions := q.actions
	q.actions = nil
	for _, a := range actions {
		t, ok := tables[a.Target()]
		if !ok {
			return errors.Newf("deferred action on unknown table %q", a.Target())
		}
		if err := a.Apply(t); err != nil {
			return errors.Wrapf(err, "table %q", t.Name)
		}
	}
	return nil
}
