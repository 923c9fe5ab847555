// Package photoimport loads profile photos in bulk from a directory of
// <INFOPEN>.<ext> files, once or continuously in watch mode.
package photoimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"egressos/pkg/metrics"
	"egressos/pkg/photo"
	"egressos/pkg/registry"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Photos stores a photo for an existing person.
type Photos interface {
	ReplacePhoto(ctx context.Context, infopen string, up *registry.Upload) (bool, error)
}

type Result string

const (
	ResultImported Result = "imported"
	ResultUnknown  Result = "unknown"
	ResultFailed   Result = "failed"
	ResultSkipped  Result = "skipped"
)

const (
	debounceTick   = 250 * time.Millisecond
	debounceStable = 300 * time.Millisecond
)

type Options struct {
	Dir          string
	ProcessedDir string // imported files are moved here; empty keeps them in Dir
	Workers      int    // defaults to NumCPU
	MaxBytes     int    // larger images are downscaled before storing; 0 disables
	DryRun       bool
}

// Summary counts the outcome of every file handled.
type Summary struct {
	Imported int
	Unknown  int
	Failed   int
	Skipped  int
}

func (s Summary) String() string {
	return fmt.Sprintf("imported=%d unknown=%d failed=%d skipped=%d", s.Imported, s.Unknown, s.Failed, s.Skipped)
}

type Importer struct {
	photos Photos
	opts   Options
	log    *zap.Logger

	mu      sync.Mutex
	summary Summary
}

func New(photos Photos, opts Options, log *zap.Logger) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{photos: photos, opts: opts, log: log}
}

// Summary returns the counts accumulated so far.
func (im *Importer) Summary() Summary {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.summary
}

// Scan imports every supported file currently in the directory.
func (im *Importer) Scan(ctx context.Context) (Summary, error) {
	files, err := ListImageFiles(im.opts.Dir)
	if err != nil {
		return Summary{}, err
	}
	im.log.Info("scanning photo directory",
		zap.String("dir", im.opts.Dir), zap.Int("files", len(files)), zap.Int("workers", im.opts.Workers))

	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	im.runPool(ctx, ch)
	return im.Summary(), ctx.Err()
}

// Watch imports files as they appear until ctx is cancelled. A file is
// handled once no write to it has been seen for a short while.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(im.opts.Dir); err != nil {
		return err
	}
	im.log.Info("watching photo directory", zap.String("dir", im.opts.Dir))

	ch := make(chan string, 256)
	go im.debounce(ctx, w, ch)
	im.runPool(ctx, ch)
	return nil
}

func (im *Importer) debounce(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if !photo.Accept(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) < debounceStable {
					continue
				}
				delete(pending, name)
				if _, err := os.Stat(filepath.Join(im.opts.Dir, name)); err != nil {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			im.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (im *Importer) runPool(ctx context.Context, files <-chan string) {
	var wg sync.WaitGroup
	for i := 0; i < im.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range files {
				if ctx.Err() != nil {
					continue
				}
				im.record(im.importFile(ctx, name))
			}
		}()
	}
	wg.Wait()
}

func (im *Importer) record(res Result) {
	metrics.PhotoImports.WithLabelValues(string(res)).Inc()
	im.mu.Lock()
	defer im.mu.Unlock()
	switch res {
	case ResultImported:
		im.summary.Imported++
	case ResultUnknown:
		im.summary.Unknown++
	case ResultFailed:
		im.summary.Failed++
	default:
		im.summary.Skipped++
	}
}

// importFile stores one file as the photo of the person named by its stem.
func (im *Importer) importFile(ctx context.Context, name string) Result {
	log := im.log.With(zap.String("file", name))
	infopen := InfopenFromName(name)
	if infopen == "" {
		log.Debug("skip: no infopen in file name")
		return ResultSkipped
	}
	src := filepath.Join(im.opts.Dir, name)
	raw, err := os.ReadFile(src)
	if err != nil {
		log.Error("read failed", zap.Error(err))
		return ResultFailed
	}
	if im.opts.DryRun {
		log.Info("dry-run: would import", zap.String("infopen", infopen), zap.Int("bytes", len(raw)))
		return ResultSkipped
	}
	if im.opts.MaxBytes > 0 && len(raw) > im.opts.MaxBytes {
		small, err := photo.Shrink(raw, im.opts.MaxBytes)
		switch {
		case err != nil:
			log.Warn("downscale failed, storing original", zap.Error(err))
		case len(small) < len(raw):
			log.Debug("downscaled", zap.Int("from", len(raw)), zap.Int("to", len(small)))
			raw = small
		default:
			log.Debug("downscale did not reduce size, storing original", zap.Int("bytes", len(raw)))
		}
	}

	stored, err := im.photos.ReplacePhoto(ctx, infopen, &registry.Upload{Filename: name, Data: raw})
	switch {
	case errors.Is(err, registry.ErrUnknownInfopen):
		log.Warn("no person with this infopen", zap.String("infopen", infopen))
		return ResultUnknown
	case err != nil:
		log.Error("store failed", zap.String("infopen", infopen), zap.Error(err))
		return ResultFailed
	case !stored:
		return ResultSkipped
	}
	log.Info("imported", zap.String("infopen", infopen))

	if im.opts.ProcessedDir != "" {
		if err := moveToProcessed(src, im.opts.ProcessedDir, name); err != nil {
			log.Warn("failed to move processed file", zap.Error(err))
		}
	}
	return ResultImported
}

// ListImageFiles returns the sorted names of the accepted image files in dir.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !photo.Accept(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// InfopenFromName derives the infopen from a file name: the stem, trimmed
// and uppercased.
func InfopenFromName(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToUpper(strings.TrimSpace(stem))
}

// moveToProcessed moves src into dir, falling back to copy+remove when a
// rename is not possible (e.g. across filesystems).
func moveToProcessed(src, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
