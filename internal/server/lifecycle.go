// Package server runs the long-lived parts of a memosono process: each
// simulated participant session and the monitors watching them. Services
// start in registration order and stop in reverse order on a signal, on
// cancellation, or when any service fails.
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
)

// DefaultStopTimeout bounds how long shutdown waits for one service.
const DefaultStopTimeout = 5 * time.Second

// ErrStopTimeout is reported when a service ignores cancellation.
var ErrStopTimeout = errors.New("service did not stop in time")

// Service is a long-running component. Run blocks until ctx is done or the
// service fails. A nil return before ctx is done means the service finished
// its work; the rest of the process keeps running.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function into the Service interface.
type ServiceFunc func(ctx context.Context) error

// Run calls f.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// Lifecycle owns a set of named services.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration
	signals     []os.Signal

	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// Option customizes a Lifecycle.
type Option func(*Lifecycle)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(l *Lifecycle) { l.stopTimeout = d }
}

// WithSignals replaces the signals that trigger shutdown. No signals means
// only cancellation or a failure stops the lifecycle.
func WithSignals(sigs ...os.Signal) Option {
	return func(l *Lifecycle) { l.signals = sigs }
}

// NewLifecycle creates an empty Lifecycle that shuts down on SIGINT or SIGTERM.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		logger:      logger.Named("lifecycle"),
		stopTimeout: DefaultStopTimeout,
		signals:     []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil; Run has not been called.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// running tracks one started service.
type running struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Run starts every service and blocks until ctx is done, a signal arrives,
// or a service fails. It then cancels the services in reverse order, waiting
// for each one before moving on.
//
// Postcondition: Returns the first service failure joined with any stop
// timeouts, or nil after a clean shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	if len(l.signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, l.signals...)
		defer stop()
	}

	failures := make(chan error, len(services))
	started := make([]running, 0, len(services))
	for _, ns := range services {
		ns := ns
		svcCtx, cancel := context.WithCancel(ctx)
		r := running{name: ns.name, cancel: cancel, done: make(chan struct{})}
		started = append(started, r)

		l.logger.Info("starting service", zap.String("service", ns.name))
		go func() {
			defer close(r.done)
			svcStart := time.Now()
			err := ns.service.Run(svcCtx)
			switch {
			case err == nil || errors.Is(err, context.Canceled) && svcCtx.Err() != nil:
				l.logger.Debug("service returned",
					zap.String("service", ns.name),
					zap.Duration("uptime", time.Since(svcStart)),
				)
			default:
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				failures <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(started)),
		zap.Duration("startup", time.Since(start)),
	)

	var failure error
	select {
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	case failure = <-failures:
		l.logger.Error("service error, shutting down", zap.Error(failure))
	}

	errs := []error{failure}
	errs = append(errs, l.shutdown(started)...)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(errs...)
}

func (l *Lifecycle) shutdown(started []running) []error {
	shutdownStart := time.Now()
	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		r := started[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", r.name))
		r.cancel()
		select {
		case <-r.done:
			l.logger.Info("service stopped",
				zap.String("service", r.name),
				zap.Duration("elapsed", time.Since(svcStart)),
			)
		case <-time.After(l.stopTimeout):
			l.logger.Warn("service did not stop", zap.String("service", r.name))
			errs = append(errs, fmt.Errorf("service %s: %w", r.name, ErrStopTimeout))
		}
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
	return errs
}
