package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingStore struct {
	mu   sync.Mutex
	ids  []string
	gate chan struct{}
	err  error
}

func (s *recordingStore) insert(ctx context.Context, r Render) (int64, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, r.RequestID)
	return int64(len(s.ids)), s.err
}

func (s *recordingStore) stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func TestWriter_StopDrainsQueue(t *testing.T) {
	store := &recordingStore{}
	w := newWriter(store.insert, 10, zaptest.NewLogger(t))
	w.Start()

	for _, id := range []string{"a", "b", "c"} {
		if !w.Enqueue(Render{RequestID: id}) {
			t.Fatalf("Enqueue(%s) = false", id)
		}
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	got := store.stored()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("stored = %v", got)
	}
	if w.Enqueue(Render{RequestID: "late"}) {
		t.Error("Enqueue after Stop = true")
	}
}

func TestWriter_FullQueueDrops(t *testing.T) {
	store := &recordingStore{gate: make(chan struct{})}
	w := newWriter(store.insert, 1, zaptest.NewLogger(t))

	if !w.Enqueue(Render{RequestID: "a"}) {
		t.Fatal("first Enqueue = false")
	}
	if w.Enqueue(Render{RequestID: "b"}) {
		t.Error("Enqueue on full queue = true")
	}
	if w.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", w.Pending())
	}

	close(store.gate)
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := store.stored(); len(got) != 1 || got[0] != "a" {
		t.Errorf("stored = %v", got)
	}
}

func TestWriter_StopHonoursContext(t *testing.T) {
	store := &recordingStore{gate: make(chan struct{})}
	defer close(store.gate)

	w := newWriter(store.insert, 10, zaptest.NewLogger(t))
	w.Start()
	w.Enqueue(Render{RequestID: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() = %v, want deadline exceeded", err)
	}
}

func TestWriter_StoreErrorsAreLogged(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	w := newWriter(store.insert, 10, zaptest.NewLogger(t))
	w.Start()
	w.Enqueue(Render{RequestID: "a"})
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := store.stored(); len(got) != 1 {
		t.Errorf("stored = %v", got)
	}
}

func TestWriter_IntoDatabase(t *testing.T) {
	d := openTestDB(t)
	w := NewWriter(d, 0, zaptest.NewLogger(t))
	w.Start()
	w.Enqueue(sampleRender("req-1"))
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	got, err := d.RendersByRequestID(context.Background(), "req-1")
	if err != nil || len(got) != 1 {
		t.Fatalf("RendersByRequestID() = %+v, %v", got, err)
	}
}
