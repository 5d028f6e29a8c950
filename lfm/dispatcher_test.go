package lfm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *recorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *recorder) last() Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}
	}
	return r.toasts[len(r.toasts)-1]
}

type serverErr struct{ msg string }

func (e serverErr) Error() string         { return "backend: " + e.msg }
func (e serverErr) ServerMessage() string { return e.msg }

var msgs = Messages{Created: "created", Updated: "updated", Deleted: "deleted", Failed: "failed"}

// fakeStore stands in for the backend collection.
type fakeStore struct {
	mu    sync.Mutex
	items []string
}

func (s *fakeStore) list(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...), nil
}

func TestDispatcherReloadReflectsMutation(t *testing.T) {
	store := &fakeStore{items: []string{"a"}}
	f := NewListFetcher(store.list)
	if _, err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := &recorder{}
	d := NewDispatcher(f, rec, msgs)

	res, err := d.Create(context.Background(), func(ctx context.Context) error {
		store.mu.Lock()
		store.items = append(store.items, "b")
		store.mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.ResetForm {
		t.Fatalf("create must reset the form")
	}
	if got := f.Data(); len(got) != 2 || got[1] != "b" {
		t.Fatalf("reload did not reflect create: %v", got)
	}
	if rec.last() != (Toast{ToastSuccess, "created"}) {
		t.Fatalf("toast = %+v", rec.last())
	}

	res, err = d.Delete(context.Background(), true, func(ctx context.Context) error {
		store.mu.Lock()
		store.items = store.items[:1]
		store.mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.ResetForm {
		t.Fatalf("delete must not reset the form")
	}
	if got := f.Data(); len(got) != 1 {
		t.Fatalf("reload did not reflect delete: %v", got)
	}
}

func TestDispatcherUpdateKeepsState(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(nil, rec, msgs)
	res, err := d.Update(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil || res.ResetForm {
		t.Fatalf("update: res=%+v err=%v", res, err)
	}
	if rec.last().Message != "updated" {
		t.Fatalf("toast = %+v", rec.last())
	}
}

func TestDispatcherFailureToastPrecedence(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{serverErr{"slug taken"}, "slug taken"},
		{serverErr{""}, "failed"},
		{errors.New("connection refused"), "failed"},
	}
	for _, tt := range tests {
		rec := &recorder{}
		reloaded := false
		f := NewListFetcher(func(ctx context.Context) ([]string, error) {
			reloaded = true
			return nil, nil
		})
		d := NewDispatcher(f, rec, msgs)
		_, err := d.Create(context.Background(), func(ctx context.Context) error { return tt.err })
		if !errors.Is(err, tt.err) {
			t.Fatalf("err = %v, want %v", err, tt.err)
		}
		if rec.last() != (Toast{ToastError, tt.want}) {
			t.Fatalf("toast = %+v, want %q", rec.last(), tt.want)
		}
		if reloaded {
			t.Fatalf("failed mutation must not reload")
		}
		if d.Busy() {
			t.Fatalf("busy flag left set after failure")
		}
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	called := false
	d := NewDispatcher(nil, &recorder{}, msgs)
	_, err := d.Delete(context.Background(), false, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrUnconfirmed) {
		t.Fatalf("err = %v, want ErrUnconfirmed", err)
	}
	if called {
		t.Fatalf("unconfirmed delete reached the backend")
	}
}

func TestDispatcherBusyWhileInFlight(t *testing.T) {
	d := NewDispatcher(nil, &recorder{}, msgs)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _ = d.Update(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
		close(done)
	}()
	<-started
	if !d.Busy() {
		t.Fatalf("Busy() = false during mutation")
	}
	if _, err := d.Update(context.Background(), func(ctx context.Context) error { return nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("concurrent mutation err = %v, want ErrBusy", err)
	}
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutation never settled")
	}
	if d.Busy() {
		t.Fatalf("Busy() = true after settle")
	}
}
