package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oolong-dev/oolong/dsl"
)

// debounce groups the events of one save.
const debounce = 300 * time.Millisecond

const sourceOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// watchDir calls rebuild after .ool files under root change, until ctx
// is done. Failed rebuilds are logged.
func watchDir(ctx context.Context, fs afero.Fs, root string, log *zap.Logger, rebuild func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()
	err = afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return err
		}
		if p != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
	if err != nil {
		return errors.Wrapf(err, "watch %s", root)
	}
	log.Info("watching", zap.String("root", root), zap.Int("dirs", len(w.WatchList())))

	timer := time.NewTimer(debounce)
	timer.Stop()
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != dsl.Ext || ev.Op&sourceOps == 0 {
				continue
			}
			log.Debug("source changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := rebuild(); err != nil {
				log.Error("rebuild failed", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
