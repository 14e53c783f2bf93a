package service

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type fakeService struct {
	name     string
	deps     []string
	startErr error
	stopErr  error
	journal  *[]string
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }
func (f *fakeService) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.journal = append(*f.journal, "start "+f.name)
	return nil
}
func (f *fakeService) Stop() error {
	*f.journal = append(*f.journal, "stop "+f.name)
	return f.stopErr
}

func newHub(t *testing.T, journal *[]string, svcs ...*fakeService) *Hub {
	t.Helper()
	h := NewHub(nil)
	for _, s := range svcs {
		s.journal = journal
		if err := h.Register(s); err != nil {
			t.Fatalf("Register(%s) error = %v", s.name, err)
		}
	}
	return h
}

func TestStartOrderFollowsDependencies(t *testing.T) {
	var journal []string
	h := newHub(t, &journal,
		&fakeService{name: "bridge", deps: []string{"store"}},
		&fakeService{name: "audio"},
		&fakeService{name: "store"},
	)
	if err := h.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll error = %v", err)
	}
	want := []string{"start audio", "start store", "start bridge"}
	if !slices.Equal(journal, want) {
		t.Errorf("journal = %v, want %v", journal, want)
	}
	if got := h.Started(); !slices.Equal(got, []string{"audio", "store", "bridge"}) {
		t.Errorf("Started = %v", got)
	}

	journal = nil
	if err := h.StopAll(); err != nil {
		t.Fatalf("StopAll error = %v", err)
	}
	want = []string{"stop bridge", "stop store", "stop audio"}
	if !slices.Equal(journal, want) {
		t.Errorf("journal = %v, want %v", journal, want)
	}
	if err := h.StopAll(); err != nil || len(journal) != 3 {
		t.Errorf("second StopAll = %v, journal %v", err, journal)
	}
}

func TestStartFailureRollsBack(t *testing.T) {
	var journal []string
	boom := errors.New("port in use")
	h := newHub(t, &journal,
		&fakeService{name: "store"},
		&fakeService{name: "audio"},
		&fakeService{name: "bridge", startErr: boom},
	)
	if err := h.StartAll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("StartAll error = %v, want %v", err, boom)
	}
	want := []string{"start store", "start audio", "stop audio", "stop store"}
	if !slices.Equal(journal, want) {
		t.Errorf("journal = %v, want %v", journal, want)
	}
	if len(h.Started()) != 0 {
		t.Errorf("Started = %v, want none", h.Started())
	}
}

func TestStopErrorsJoined(t *testing.T) {
	var journal []string
	e1, e2 := errors.New("a"), errors.New("b")
	h := newHub(t, &journal,
		&fakeService{name: "one", stopErr: e1},
		&fakeService{name: "two", stopErr: e2},
	)
	if err := h.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll error = %v", err)
	}
	err := h.StopAll()
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("StopAll error = %v, want both", err)
	}
	if len(journal) != 4 {
		t.Errorf("journal = %v, want every service stopped", journal)
	}
}

func TestRegistrationErrors(t *testing.T) {
	var journal []string
	h := newHub(t, &journal, &fakeService{name: "store"})
	if err := h.Register(&fakeService{name: "store", journal: &journal}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Register error = %v, want ErrDuplicate", err)
	}
	if _, ok := h.Get("store"); !ok {
		t.Error("Get(store) missing")
	}

	missing := newHub(t, &journal, &fakeService{name: "bridge", deps: []string{"nope"}})
	if err := missing.StartAll(context.Background()); !errors.Is(err, ErrUnknown) {
		t.Errorf("StartAll error = %v, want ErrUnknown", err)
	}

	cycle := newHub(t, &journal,
		&fakeService{name: "a", deps: []string{"b"}},
		&fakeService{name: "b", deps: []string{"a"}},
	)
	if err := cycle.StartAll(context.Background()); !errors.Is(err, ErrCycle) {
		t.Errorf("StartAll error = %v, want ErrCycle", err)
	}
	if len(journal) != 0 {
		t.Errorf("journal = %v, want nothing started", journal)
	}
}
