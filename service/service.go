// Package service orders the start and stop of long-lived subsystems:
// the progress store, the audio device and the sensor bridge
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Service is a subsystem with a start/stop lifecycle
//
// Lifecycle:
//  1. Construction by the owner
//  2. Start(ctx), after every dependency started
//  3. Stop, in reverse start order; must be safe to call once after a
//     failed Start
type Service interface {
	Name() string
	Dependencies() []string
	Start(ctx context.Context) error
	Stop() error
}

var (
	ErrDuplicate = errors.New("service: already registered")
	ErrUnknown   = errors.New("service: unknown dependency")
	ErrCycle     = errors.New("service: circular dependency")
)

// Hub owns registered services and their start order
type Hub struct {
	mu       sync.Mutex
	services map[string]Service
	order    []string // registration order, ties in the sort follow it
	started  []string
	log      *log.Logger
}

// NewHub creates an empty hub; nil logger discards output
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{services: make(map[string]Service), log: logger}
}

// Register adds svc; names are unique
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	name := svc.Name()
	if _, ok := h.services[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	h.services[name] = svc
	h.order = append(h.order, name)
	return nil
}

// Get returns the service registered as name
func (h *Hub) Get(name string) (Service, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	svc, ok := h.services[name]
	return svc, ok
}

// StartAll starts every service in dependency order
// A failure stops the already started services in reverse and is returned
func (h *Hub) StartAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, err := h.sort()
	if err != nil {
		return err
	}
	h.started = h.started[:0]
	for _, name := range order {
		if err := h.services[name].Start(ctx); err != nil {
			h.stopStarted()
			return fmt.Errorf("service %s: start: %w", name, err)
		}
		h.started = append(h.started, name)
		h.log.Debug("service started", "name", name)
	}
	return nil
}

// StopAll stops started services in reverse order; errors are logged and
// joined so every service still gets its Stop
func (h *Hub) StopAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopStarted()
}

// Started returns the names of running services in start order
func (h *Hub) Started() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.started...)
}

func (h *Hub) stopStarted() error {
	var errs []error
	for i := len(h.started) - 1; i >= 0; i-- {
		name := h.started[i]
		if err := h.services[name].Stop(); err != nil {
			h.log.Warn("service stop failed", "name", name, "err", err)
			errs = append(errs, fmt.Errorf("service %s: stop: %w", name, err))
		}
	}
	h.started = h.started[:0]
	return errors.Join(errs...)
}

// sort orders services with Kahn's algorithm, seeded in registration order
func (h *Hub) sort() ([]string, error) {
	inDegree := make(map[string]int, len(h.services))
	dependents := make(map[string][]string)
	for _, name := range h.order {
		for _, dep := range h.services[name].Dependencies() {
			if _, ok := h.services[dep]; !ok {
				return nil, fmt.Errorf("%w: %s needs %s", ErrUnknown, name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for _, name := range h.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	result := make([]string, 0, len(h.services))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)
		for _, d := range dependents[name] {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	if len(result) != len(h.services) {
		return nil, ErrCycle
	}
	return result, nil
}
