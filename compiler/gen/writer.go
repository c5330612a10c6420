package gen

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dave/jennifer/jen"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// File is an output file.
type File struct {
	// Path is relative to the target directory.
	Path string
	Src  []byte
	// Keep leaves an existing file untouched.
	Keep bool
}

// Writer writes files in parallel, formatting Go sources with goimports.
type Writer struct {
	fs      afero.Fs
	dir     string
	workers int
	log     *zap.Logger

	mu      sync.Mutex
	written []string
}

// NewWriter returns a writer into dir.
func NewWriter(fs afero.Fs, dir string, workers int, log *zap.Logger) *Writer {
	return &Writer{fs: fs, dir: dir, workers: workers, log: log}
}

// Write writes every file and returns the paths written, in input order.
func (w *Writer) Write(ctx context.Context, files []*File) ([]string, error) {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	eg, ctx := errgroup.WithContext(ctx)
	if w.workers > 0 {
		eg.SetLimit(w.workers)
	}
	for _, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.write(f)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, f := range files {
		if slices.Contains(w.written, f.Path) {
			out = append(out, f.Path)
		}
	}
	return out, nil
}

func (w *Writer) write(f *File) error {
	full := filepath.Join(w.dir, filepath.FromSlash(f.Path))
	if f.Keep {
		exists, err := afero.Exists(w.fs, full)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	src := f.Src
	if strings.HasSuffix(f.Path, ".go") {
		formatted, err := imports.Process(full, src, nil)
		if err != nil {
			// keep the unformatted source for debugging
			_ = w.fs.MkdirAll(filepath.Dir(full), 0o755)
			_ = afero.WriteFile(w.fs, full+".error", src, 0o644)
			return errors.Wrapf(err, "format %s (unformatted written to %s.error)", f.Path, full)
		}
		src = formatted
	}
	if err := w.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", f.Path)
	}
	if err := afero.WriteFile(w.fs, full, src, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", f.Path)
	}
	w.log.Debug("file written", zap.String("path", full), zap.Int("bytes", len(src)))
	w.mu.Lock()
	w.written = append(w.written, f.Path)
	w.mu.Unlock()
	return nil
}

// Render renders a jennifer file.
func Render(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
