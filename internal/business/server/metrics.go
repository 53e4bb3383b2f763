package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/identity-provider/internal/config"
)

var (
	counter metric.Int64Counter
	hist    metric.Int64Histogram

	meterAttrs metric.MeasurementOption
	traceAttrs []attribute.KeyValue
)

func initMeters(ctx context.Context, cfg *config.Config) error {
	meter := otel.Meter(
		"identity-provider/"+cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	var err error

	counter, err = meter.Int64Counter(
		"http.request_count",
		metric.WithDescription("Incoming request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating request_count meter")
	}

	hist, err = meter.Int64Histogram(
		"http.duration",
		metric.WithDescription("Incoming end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating duration meter")
	}

	meterAttrs = metric.WithAttributes(otlp.CreateAttributesFrom(cfg.Application)...)
	traceAttrs = otlp.CreateAttributesFrom(cfg.Application)

	return nil
}

// instrument wraps a handler with a per-request id, a span and the
// request meters, keyed by operation name.
func instrument(operation string, h http.HandlerFunc) http.Handler {
	tracer := otel.Tracer(operation, trace.WithInstrumentationAttributes(traceAttrs...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogctx.With(r.Context(),
			commoncfg.AttrRequestID, uuid.NewString(),
			commoncfg.AttrOperation, operation,
		)

		parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(parentCtx, operation+"-span",
			trace.WithAttributes(append(traceAttrs, attribute.String(commoncfg.AttrOperation, operation))...))
		defer span.End()

		requestStartTime := time.Now()
		defer func() {
			elapsedTime := time.Since(requestStartTime)

			if counter != nil {
				counter.Add(ctx, 1, meterAttrs)
			}
			if hist != nil {
				hist.Record(ctx, elapsedTime.Milliseconds(), meterAttrs)
			}
		}()

		slogctx.Debug(ctx, "Processing request", "operation", operation)
		h.ServeHTTP(w, r.WithContext(ctx))
		slogctx.Debug(ctx, "Finished request", "operation", operation)
	})
}
