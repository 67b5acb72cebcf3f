package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Forum counters. Instruments come from the global meter provider, which
// delegates to the Prometheus-backed provider once Init has run.
var (
	instrumentsOnce sync.Once
	votesCounter    otelmetric.Int64Counter
	likesCounter    otelmetric.Int64Counter
	followsCounter  otelmetric.Int64Counter
	commentsCounter otelmetric.Int64Counter
	mailsCounter    otelmetric.Int64Counter
)

func initInstruments() {
	meter := otel.Meter(instrumentationName)
	votesCounter, _ = meter.Int64Counter("forum_votes_total",
		otelmetric.WithDescription("Votes cast on topics and comments, by outcome"))
	likesCounter, _ = meter.Int64Counter("forum_likes_total",
		otelmetric.WithDescription("Like toggles on topics"))
	followsCounter, _ = meter.Int64Counter("forum_follows_total",
		otelmetric.WithDescription("Follow toggles on topics"))
	commentsCounter, _ = meter.Int64Counter("forum_comments_total",
		otelmetric.WithDescription("Comments added"))
	mailsCounter, _ = meter.Int64Counter("forum_mails_total",
		otelmetric.WithDescription("Outbound mails, by backend and result"))
}

func ensureInstruments() {
	instrumentsOnce.Do(initInstruments)
}

// RecordVote counts a cast vote. target is "topic" or "comment".
func RecordVote(ctx context.Context, target, status string) {
	ensureInstruments()
	votesCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("target", target),
		attribute.String("status", status),
	))
}

// RecordLike counts a like toggle.
func RecordLike(ctx context.Context, liked bool) {
	ensureInstruments()
	likesCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("is_like", liked)))
}

// RecordFollow counts a follow toggle.
func RecordFollow(ctx context.Context, followed bool) {
	ensureInstruments()
	followsCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("is_followed", followed)))
}

// RecordComment counts a new comment.
func RecordComment(ctx context.Context) {
	ensureInstruments()
	commentsCounter.Add(ctx, 1)
}

// RecordMail counts an outbound mail attempt.
func RecordMail(ctx context.Context, backend string, ok bool) {
	ensureInstruments()
	mailsCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("ok", ok),
	))
}
