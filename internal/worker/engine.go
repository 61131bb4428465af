package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/messaging"
)

const (
	handlerAttempts = 3
	retryDelay      = 250 * time.Millisecond
	maxRestartDelay = 30 * time.Second
)

// HandlerRegistration binds an event type to its handler. Messages are
// routed by their event-type header.
type HandlerRegistration struct {
	EventType string
	Handler   messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs a pool of consumers over the messaging client and routes each
// message to the handler registered for its event type.
type Engine struct {
	client     messaging.Client
	logger     *zap.Logger
	enabled    bool
	workers    int
	routes     map[string]messaging.Handler
	retryDelay time.Duration

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewEngine validates registrations and builds the routing table.
func NewEngine(p Params) (*Engine, error) {
	routes := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.EventType == "" || r.Handler == nil {
			return nil, fmt.Errorf("worker: incomplete registration for event type %q", r.EventType)
		}
		if _, dup := routes[r.EventType]; dup {
			return nil, fmt.Errorf("worker: duplicate handler for event type %q", r.EventType)
		}
		routes[r.EventType] = r.Handler
	}

	msgCfg := p.Config.Messaging
	return &Engine{
		client:     p.Client,
		logger:     p.Logger.Named("worker"),
		enabled:    msgCfg.Enabled && msgCfg.Workers.Enabled,
		workers:    max(msgCfg.Workers.Concurrency, 1),
		routes:     routes,
		retryDelay: retryDelay,
	}, nil
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.start,
			OnStop:  engine.stop,
		})
	}),
)

func (e *Engine) start(context.Context) error {
	switch {
	case !e.enabled:
		e.logger.Info("worker engine disabled")
		return nil
	case len(e.routes) == 0:
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(runCtx)
	e.cancel = cancel
	e.group = group

	for id := range e.workers {
		group.Go(func() error {
			e.consume(groupCtx, id)
			return nil
		})
	}

	e.logger.Info("worker engine started", zap.Int("workers", e.workers), zap.String("topic", e.client.Topic()))
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan error, 1)
	go func() { done <- e.group.Wait() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		e.logger.Info("worker engine stopped")
		return err
	}
}

// consume keeps one consumer attached, restarting with exponential backoff
// when the client fails for reasons other than shutdown.
func (e *Engine) consume(ctx context.Context, worker int) {
	delay := time.Second
	for ctx.Err() == nil {
		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.route(msgCtx, msg, worker)
		})
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consumer failed; restarting", zap.Int("worker", worker), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		delay = min(delay*2, maxRestartDelay)
	}
}

// route dispatches msg and retries a failing handler with linear backoff.
// Unroutable messages are acknowledged so they do not block the partition.
func (e *Engine) route(ctx context.Context, msg messaging.Message, worker int) error {
	eventType := msg.Headers[messaging.HeaderEventType]
	handler, ok := e.routes[eventType]
	if !ok {
		e.logger.Warn("no handler for event type", zap.String("event_type", eventType), zap.Int64("offset", msg.Offset))
		return nil
	}

	log := e.logger.With(
		zap.String("event_type", eventType),
		zap.Int64("offset", msg.Offset),
		zap.Int("worker", worker),
	)
	log.Debug("processing message")

	var err error
	for attempt := 1; attempt <= handlerAttempts; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		log.Warn("handler failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == handlerAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * e.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", eventType, handlerAttempts, err)
}
