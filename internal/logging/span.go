package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
)

// Span times one service operation and logs its outcome against the
// request's trace.
type Span struct {
	op     string
	logger *slog.Logger
	start  time.Time
	attrs  []any
}

// StartSpan opens a span named op. The returned context carries a logger
// tagged with trace, span and (when known) account identifiers so nested
// calls log under the same trace.
func StartSpan(ctx context.Context, op string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	attrs := []any{slog.String("op", op), slog.String("span_id", spanID)}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	if accountID := AccountIDFromContext(ctx); accountID != "" {
		attrs = append(attrs, slog.String("account_id", accountID))
	}
	logger = logger.With(attrs...)

	ctx = WithSpanID(WithLogger(ctx, logger), spanID)
	return ctx, &Span{op: op, logger: logger, start: time.Now()}
}

// Annotate attaches attributes that are only known mid-operation, such as the
// id of a row the operation created.
func (s *Span) Annotate(attrs ...any) {
	if s == nil {
		return
	}
	s.attrs = append(s.attrs, attrs...)
}

// End logs the span outcome. Caller mistakes (validation, missing rows,
// ownership) are info; upstream and internal failures are warnings and errors.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	attrs := append([]any{slog.Duration("duration", time.Since(s.start))}, s.attrs...)

	if err == nil {
		s.logger.Debug("span completed", attrs...)
		return
	}

	appErr := apperr.As(err)
	attrs = append(attrs, slog.String("kind", string(appErr.Kind)), slog.String("error", err.Error()))
	switch appErr.Kind {
	case apperr.KindInternal:
		s.logger.Error("span failed", attrs...)
	case apperr.KindUpstream:
		s.logger.Warn("span failed", attrs...)
	default:
		s.logger.Info("span rejected", attrs...)
	}
}
