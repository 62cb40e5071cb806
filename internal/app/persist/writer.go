package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomrelay/internal/pkg/logx"
)

// sinkTimeout bounds a single background write to one sink.
const sinkTimeout = 10 * time.Second

// Writer marshals snapshots and delivers them to every configured sink.
//
// In synchronous mode Save writes to the sinks before returning. In asynchronous mode
// Save only records the latest bytes per snapshot name and a background goroutine
// writes them; intermediate versions of the same snapshot may be skipped.
type Writer struct {
	sinks []Sink
	async bool

	mu      sync.Mutex
	pending map[string][]byte
	order   []string

	// failed holds the error of the latest write per snapshot name; a success clears it.
	failed map[string]error

	wake   chan struct{}
	idle   *sync.Cond
	busy   bool
	closed bool
	done   chan struct{}

	logger zerolog.Logger
}

var (
	_ Snapshotter = (*Writer)(nil)
	_ Reporter    = (*Writer)(nil)
)

// NewWriter builds a Writer. When async is true the background loop starts immediately.
func NewWriter(sinks []Sink, async bool) *Writer {
	w := &Writer{
		sinks:   sinks,
		async:   async,
		pending: make(map[string][]byte),
		failed:  make(map[string]error),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  logx.Component("persist"),
	}
	w.idle = sync.NewCond(&w.mu)

	if async {
		go w.run()
	} else {
		close(w.done)
	}

	return w
}

// Seed writes an empty JSON array for each name, resetting previous exports.
func (w *Writer) Seed(ctx context.Context, names ...string) error {
	var errList []error
	for _, name := range names {
		if err := w.write(ctx, name, []byte("[]")); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Save implements Snapshotter.
func (w *Writer) Save(ctx context.Context, name string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		err = fmt.Errorf("persist: marshal %s snapshot: %w", name, err)
		w.setFailed(name, err)
		return err
	}

	if !w.async {
		return w.write(ctx, name, body)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("persist: writer closed, %s snapshot dropped", name)
	}

	if _, queued := w.pending[name]; !queued {
		w.order = append(w.order, name)
	}
	w.pending[name] = body

	select {
	case w.wake <- struct{}{}:
	default:
	}

	return nil
}

func (w *Writer) write(ctx context.Context, name string, body []byte) error {
	var errList []error
	for _, sink := range w.sinks {
		if err := sink.Put(ctx, name, body); err != nil {
			w.logger.Error().Err(err).Str("snapshot", name).Msg("Snapshot export failed")
			errList = append(errList, err)
		}
	}

	err := errors.Join(errList...)
	if err != nil {
		w.setFailed(name, fmt.Errorf("persist: %s snapshot: %w", name, err))
	} else {
		w.setFailed(name, nil)
	}

	return err
}

func (w *Writer) setFailed(name string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.failed[name] = err
		return
	}
	delete(w.failed, name)
}

// Err implements Reporter. It joins the latest write error of every snapshot whose
// most recent write failed, in name order, or returns nil when all are healthy.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.failed) == 0 {
		return nil
	}

	errList := make([]error, 0, len(w.failed))
	for _, name := range slices.Sorted(maps.Keys(w.failed)) {
		errList = append(errList, w.failed[name])
	}
	return errors.Join(errList...)
}

func (w *Writer) run() {
	defer close(w.done)

	for {
		_, open := <-w.wake

		for {
			name, body, ok := w.next()
			if !ok {
				break
			}

			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			// The outcome is kept in failed and surfaces through Err.
			_ = w.write(ctx, name, body)
			cancel()

			w.mu.Lock()
			w.busy = false
			w.idle.Broadcast()
			w.mu.Unlock()
		}

		if !open {
			return
		}
	}
}

// next pops the oldest pending snapshot and marks the writer busy.
func (w *Writer) next() (string, []byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.order) == 0 {
		w.idle.Broadcast()
		return "", nil, false
	}

	name := w.order[0]
	w.order = w.order[1:]
	body := w.pending[name]
	delete(w.pending, name)
	w.busy = true

	return name, body, true
}

// Flush blocks until every snapshot queued before the call has been written.
func (w *Writer) Flush() {
	if !w.async {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for (len(w.order) > 0 || w.busy) && !w.closed {
		select {
		case w.wake <- struct{}{}:
		default:
		}
		w.idle.Wait()
	}
}

// Close drains pending snapshots and closes every sink.
func (w *Writer) Close() error {
	w.mu.Lock()
	alreadyClosed := w.closed
	w.closed = true
	w.mu.Unlock()

	if alreadyClosed {
		return nil
	}

	if w.async {
		close(w.wake)
		<-w.done
	}

	var errList []error
	for _, sink := range w.sinks {
		if err := sink.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
