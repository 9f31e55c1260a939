package imgfit

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// debouncedelay is how long a file must stay quiet before it is processed.
// Editors and downloads often emit bursts of write events for one file.
const debounceDelay = 500 * time.Millisecond

// Watcher monitors directories and runs every newly written image file
// through a Runner. Files are processed one at a time, preserving the
// runner's sequential execution model.
type Watcher struct {
	runner *Runner
	fs     *fsnotify.Watcher
	log    *zap.Logger
	ready  chan string
}

// NewWatcher returns a watcher that feeds the given runner. The runner's
// logger is reused for watch events.
func NewWatcher(runner *Runner, dirs ...string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "imgfit: create watcher")
	}
	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, errors.Wrapf(err, "imgfit: watch %s", dir)
		}
	}
	return &Watcher{
		runner: runner,
		fs:     fs,
		log:    runner.log,
		ready:  make(chan string, 100),
	}, nil
}

// Start blocks, processing files as they appear, until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fs.Close()

	// Debounce timers per path; the timer callback only queues the path,
	// the processing itself stays on this goroutine.
	debounce := make(map[string]*time.Timer)
	defer func() {
		for _, t := range debounce {
			t.Stop()
		}
	}()

	w.log.Info("watch started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsImagePath(event.Name) {
				continue
			}
			// Skip dotfiles and partial downloads.
			if base := filepath.Base(event.Name); strings.HasPrefix(base, ".") {
				continue
			}
			// Never reprocess our own outputs: without a separate output
			// directory the fitted file lands in the watched directory and
			// would otherwise loop back through the runner forever.
			if isFittedOutput(event.Name) {
				continue
			}

			path := event.Name
			if timer, exists := debounce[path]; exists {
				timer.Stop()
			}
			debounce[path] = time.AfterFunc(debounceDelay, func() {
				select {
				case w.ready <- path:
				default:
					w.log.Warn("watch queue full, dropping event", zap.String("file", path))
				}
			})

		case path := <-w.ready:
			delete(debounce, path)
			outcomes, skips, err := w.runner.Run(ctx, []Job{{Src: path}})
			if err != nil {
				return err
			}
			for _, o := range outcomes {
				w.log.Info("watched file fitted", zap.String("output", o.Name))
			}
			for _, s := range skips {
				w.log.Warn("watched file skipped",
					zap.String("file", s.Name),
					zap.String("reason", s.Reason))
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", zap.Error(err))
		}
	}
}
