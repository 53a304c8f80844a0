package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrWriterClosed is returned when a mutation is submitted after Close.
var ErrWriterClosed = errors.New("database writer is closed")

// WriteFunc performs one mutation against the store.
type WriteFunc func(ctx context.Context, db *sql.DB) error

type writeRequest struct {
	ctx  context.Context
	fn   WriteFunc
	done chan error
}

// Writer is the single owner of Local Store mutations. Other goroutines
// submit closures through Do and wait for their result; the closures run one
// at a time, in submission order, on the writer goroutine.
type Writer struct {
	db        *sql.DB
	requests  chan writeRequest
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
}

// NewWriter creates a writer over db. bufferSize bounds how many mutations may
// wait before Do blocks.
func NewWriter(db *sql.DB, bufferSize int) *Writer {
	return &Writer{
		db:        db,
		requests:  make(chan writeRequest, bufferSize),
		closeChan: make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling it more than once is a no-op.
func (w *Writer) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.loop()
	})
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeChan:
			w.drain()
			return
		case req := <-w.requests:
			w.run(req)
		}
	}
}

// drain finishes requests accepted before Close.
func (w *Writer) drain() {
	for {
		select {
		case req := <-w.requests:
			w.run(req)
		default:
			return
		}
	}
}

func (w *Writer) run(req writeRequest) {
	if err := req.ctx.Err(); err != nil {
		req.done <- err
		return
	}
	req.done <- req.fn(req.ctx, w.db)
}

// Do submits fn and blocks until the writer has answered it. Once queued,
// the result is always fn's own: a request whose ctx is done before it runs
// is skipped and reports ctx.Err(), one that already ran reports what fn
// returned. A nil error therefore means fn completed.
func (w *Writer) Do(ctx context.Context, fn WriteFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWriterClosed
	}
	req := writeRequest{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	return <-req.done
}

// Close stops accepting mutations and waits for queued ones to finish.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeChan)
	w.mu.Unlock()

	// a writer that was never started still has to answer queued requests
	w.Start()
	w.wg.Wait()
	return nil
}
