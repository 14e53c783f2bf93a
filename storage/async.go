package storage

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Poster runs completions on the owner's thread, in order
type Poster interface {
	Post(fn func())
}

// Async runs store operations on a single worker goroutine
//
// Requests execute in submission order; each completion is handed to the
// Poster so callers observe results on their own thread, never mid-step.
// Failures are logged and passed to the completion.
type Async struct {
	store   Store
	poster  Poster
	log     *log.Logger
	timeout time.Duration

	ch     chan task
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.Mutex // guards send against close
	closed atomic.Bool
}

type task struct {
	op  string
	key string
	run func(ctx context.Context) func()
}

// NewAsync starts the worker; timeout bounds each operation
func NewAsync(store Store, poster Poster, timeout time.Duration, logger *log.Logger) *Async {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &Async{
		store:   store,
		poster:  poster,
		log:     logger,
		timeout: timeout,
		ch:      make(chan task, 256),
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.loop()
	}()
	return a
}

func (a *Async) loop() {
	for t := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		complete := t.run(ctx)
		cancel()
		if complete != nil {
			a.poster.Post(complete)
		}
	}
}

func (a *Async) submit(t task, fail func(error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		err := &StorageError{Op: t.op, Key: t.key, Err: errClosed}
		a.poster.Post(func() { fail(err) })
		return
	}
	a.ch <- t
}

func (a *Async) failed(op, key string, err error) {
	a.log.Error("storage operation failed", "op", op, "key", key, "err", err)
}

// Save encodes v now and writes it later; done may be nil
func (a *Async) Save(key string, v any, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	data, err := json.Marshal(v)
	if err != nil {
		serr := &StorageError{Op: "save", Key: key, Err: err}
		a.failed("save", key, serr)
		a.poster.Post(func() { done(serr) })
		return
	}
	a.submit(task{op: "save", key: key, run: func(ctx context.Context) func() {
		err := a.store.Save(ctx, key, data)
		if err != nil {
			a.failed("save", key, err)
		}
		return func() { done(err) }
	}}, done)
}

// Load reads key; done receives ok=false for a missing key
func (a *Async) Load(key string, done func(data []byte, ok bool, err error)) {
	a.submit(task{op: "load", key: key, run: func(ctx context.Context) func() {
		data, ok, err := a.store.Load(ctx, key)
		if err != nil {
			a.failed("load", key, err)
		}
		return func() { done(data, ok, err) }
	}}, func(err error) { done(nil, false, err) })
}

// Delete removes key; done may be nil
func (a *Async) Delete(key string, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	a.submit(task{op: "delete", key: key, run: func(ctx context.Context) func() {
		err := a.store.Delete(ctx, key)
		if err != nil {
			a.failed("delete", key, err)
		}
		return func() { done(err) }
	}}, done)
}

// LoadJSON reads key and decodes it into a T
// Missing keys and decode failures report ok=false; decode failures also
// carry a StorageError
func LoadJSON[T any](a *Async, key string, done func(v T, ok bool, err error)) {
	a.Load(key, func(data []byte, ok bool, err error) {
		var v T
		if err != nil || !ok {
			done(v, false, err)
			return
		}
		if jerr := json.Unmarshal(data, &v); jerr != nil {
			serr := &StorageError{Op: "decode", Key: key, Err: jerr}
			a.failed("decode", key, serr)
			done(v, false, serr)
			return
		}
		done(v, true, nil)
	})
}

// Close drains queued work, stops the worker and closes the store
func (a *Async) Close() error {
	var err error
	a.once.Do(func() {
		a.mu.Lock()
		a.closed.Store(true)
		close(a.ch)
		a.mu.Unlock()
		a.wg.Wait()
		err = a.store.Close()
	})
	return err
}
