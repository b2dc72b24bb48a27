package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/metaform/pkg/service/worker"
)

type mockRefresher struct {
	mu     sync.Mutex
	calls  int
	err    error
	called chan struct{}
}

func newMockRefresher() *mockRefresher {
	return &mockRefresher{called: make(chan struct{}, 16)}
}

func (m *mockRefresher) Refresh(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()

	select {
	case m.called <- struct{}{}:
	default:
	}
	if err != nil {
		return 0, err
	}
	return 3, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitCall(t *testing.T, m *mockRefresher) {
	t.Helper()
	select {
	case <-m.called:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not called")
	}
}

func TestSchemaRefreshWorker_InitialAndPeriodic(t *testing.T) {
	m := newMockRefresher()
	w := worker.NewSchemaRefreshWorker(m, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background()))
	waitCall(t, m)
	waitCall(t, m)
	w.Stop()

	gt.Bool(t, m.callCount() >= 2).True()
}

func TestSchemaRefreshWorker_ContinuesAfterError(t *testing.T) {
	m := newMockRefresher()
	m.err = errors.New("record API unavailable")
	w := worker.NewSchemaRefreshWorker(m, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background()))
	waitCall(t, m)
	waitCall(t, m)
	w.Stop()

	gt.Bool(t, m.callCount() >= 2).True()
}

func TestSchemaRefreshWorker_StopsOnContextCancel(t *testing.T) {
	m := newMockRefresher()
	w := worker.NewSchemaRefreshWorker(m, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	gt.NoError(t, w.Start(ctx))
	waitCall(t, m)
	cancel()

	// Stop must return once the loop has exited on cancellation
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	gt.Equal(t, m.callCount(), 1)
}
