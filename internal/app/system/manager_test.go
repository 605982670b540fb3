package system

import (
	"context"
	"errors"
	"testing"
)

type fakeService struct {
	name     string
	startErr error
	events   *[]string
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	return s.startErr
}

func (s *fakeService) Stop(context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var events []string
	m := NewManager()
	m.Register(&fakeService{name: "a", events: &events})
	m.Register(&fakeService{name: "b", events: &events})

	ctx := context.Background()
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if err := m.StopAll(ctx); err != nil {
		t.Fatalf("stop all: %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var events []string
	m := NewManager()
	m.Register(&fakeService{name: "a", events: &events})
	m.Register(&fakeService{name: "b", startErr: errors.New("boom"), events: &events})

	err := m.StartAll(context.Background())
	if err == nil {
		t.Fatal("expected start failure")
	}

	want := []string{"start:a", "start:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}
