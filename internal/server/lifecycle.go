// Package server runs the long-lived parts of the game server under one
// lifecycle: started in order, stopped in reverse on signal, cancellation
// or the first failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/observability"
)

// Service is a long-running component. Start blocks until the service is
// stopped or fails.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// LoopService adapts a context-driven loop, such as a scheduler or a
// ticker, into a Service. Stop cancels the loop's context and waits for
// it to return.
type LoopService struct {
	run func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	// stopped is set when Stop runs before Start.
	stopped bool
}

// NewLoopService wraps run.
//
// Precondition: run must not be nil and must return once its context is done.
func NewLoopService(run func(ctx context.Context) error) *LoopService {
	if run == nil {
		panic("server.NewLoopService: run must not be nil")
	}
	return &LoopService{run: run}
}

// Start runs the loop until Stop is called.
//
// Postcondition: a loop ending through cancellation returns nil.
func (s *LoopService) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer close(done)
	err := s.run(ctx)
	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop cancels the loop and waits for it to return.
func (s *LoopService) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Lifecycle manages the startup and shutdown of named services.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: observability.Component(logger, "lifecycle")}
}

// Add registers a named service. Services start in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Names returns the registered service names in start order.
func (l *Lifecycle) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.services))
	for i, ns := range l.services {
		names[i] = ns.name
	}
	return names
}

// Run starts all services and blocks until SIGINT or SIGTERM, until ctx is
// done, or until a service fails. Services are then stopped in reverse order.
//
// Postcondition: All services are stopped; the first service failure is returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var failure error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case failure = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(failure))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	shutdown(l.logger, services)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return failure
}

func shutdown(logger *zap.Logger, services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		ns.service.Stop()
		logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
