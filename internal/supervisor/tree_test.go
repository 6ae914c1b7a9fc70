// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockService runs until canceled, optionally failing its first maxFails starts.
type mockService struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	failCount  atomic.Int32

	mu       sync.Mutex
	maxFails int32
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	defer m.stopCount.Add(1)

	m.mu.Lock()
	maxFails := m.maxFails
	m.mu.Unlock()

	if maxFails > 0 && m.failCount.Add(1) <= maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) setFailCount(n int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxFails = n
}

func (m *mockService) String() string { return m.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Parallel()

	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("NewSupervisorTree() error = %v", err)
		}
		if tree.Root() == nil || tree.model == nil || tree.api == nil {
			t.Error("tree is missing a supervisor")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("NewSupervisorTree() error = %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}

	modelSvc := newMockService("mock-model")
	apiSvc := newMockService("mock-api")
	tree.AddModelService(modelSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	time.Sleep(100 * time.Millisecond)
	if modelSvc.startCount.Load() < 1 || apiSvc.startCount.Load() < 1 {
		t.Errorf("starts = %d/%d, want both layers started", modelSvc.startCount.Load(), apiSvc.startCount.Load())
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
	if modelSvc.stopCount.Load() < 1 || apiSvc.stopCount.Load() < 1 {
		t.Error("services were not stopped")
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("UnstoppedServiceReport() = %v, %v", report, err)
	}
}

func TestSupervisorTreeRestartsFailingService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := newMockService("failing")
	failing.setFailCount(2)
	stable := newMockService("stable")
	tree.AddModelService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	errCh := tree.ServeBackground(ctx)
	time.Sleep(200 * time.Millisecond)

	if got := failing.startCount.Load(); got < 3 {
		t.Errorf("failing service started %d times, want at least 3", got)
	}
	if got := stable.startCount.Load(); got != 1 {
		t.Errorf("stable service started %d times, want 1", got)
	}
	cancel()
	<-errCh
}
