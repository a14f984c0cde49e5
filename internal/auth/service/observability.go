package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/audit"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/auth/device"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/privacy"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/platform/requestcontext"
)

// logAudit writes an event-style audit line carrying request metadata.
// Client IPs are anonymised before they reach the log.
func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	record := audit.Event{
		Action:    event,
		UserID:    stringAttr(attributes, "user_id"),
		Reason:    stringAttr(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
	}
	if record.RequestID != "" {
		attributes = append(attributes, "request_id", record.RequestID)
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		record.ClientIPPrefix = privacy.AnonymizeIP(ip)
		attributes = append(attributes, "client_ip", record.ClientIPPrefix)
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		record.Device = device.DisplayName(ua)
		attributes = append(attributes, "device", record.Device)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)

	if s.audit != nil {
		if err := s.audit.Emit(ctx, record); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "event", event)
		}
	}
}

// stringAttr finds key in slog-style key/value pairs.
func stringAttr(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) observeSignIn(method string, success bool, started int64) {
	if s.metrics == nil {
		return
	}
	elapsed := float64(s.now().UnixNano()-started) / 1e6
	s.metrics.ObserveSignIn(method, success, elapsed)
}
