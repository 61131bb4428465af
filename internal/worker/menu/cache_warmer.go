package menu

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/messaging"
	menusvc "github.com/Additional-Code/bistro/internal/service/menu"
	"github.com/Additional-Code/bistro/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/bistro/worker/menu")

// Module registers menu-related worker handlers.
var Module = fx.Module("worker_menu",
	fx.Provide(
		fx.Annotate(
			NewCacheWarmer,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Warmer reloads the cached menu listings.
type Warmer interface {
	Warm(ctx context.Context) error
}

// NewCacheWarmer refills the menu listing cache whenever the menu changes, so
// the first reader after a write does not pay for the reload.
func NewCacheWarmer(logger *zap.Logger, svc *menusvc.Service) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		EventType: menusvc.EventMenuChanged,
		Handler:   warmHandler(logger, svc),
	}
}

func warmHandler(logger *zap.Logger, warmer Warmer) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.menu.warm", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event menusvc.ChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// A malformed event can never succeed; drop it so it is committed.
			logger.Error("failed to decode menu event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		span.SetAttributes(attribute.String("menu.entity", event.Entity), attribute.Int64("menu.id", event.ID))

		if err := warmer.Warm(ctx); err != nil {
			logger.Error("menu cache warm failed", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "warm failed")
			return err
		}
		logger.Info("menu cache warmed",
			zap.String("entity", event.Entity),
			zap.String("action", event.Action),
			zap.Int64("id", event.ID),
		)
		return nil
	}
}
