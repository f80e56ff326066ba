package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	undoErr := errors.New("disk full")

	b := NewBuilder(WithName("orders"), WithLogger(zap.New(core)))
	b.Add(NewUnit(func(context.Context) error { return nil }, func(context.Context) error { return undoErr }, Named("save")))
	b.Add(NewUnit(func(context.Context) error { return errors.New("boom") }, nil, Named("post")))

	require.Error(t, b.Commit(context.Background()))

	warns := logs.FilterMessage("unit rollback failed").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zapcore.WarnLevel, warns[0].Level)
	assert.Equal(t, "uow", warns[0].LoggerName)
	fields := warns[0].ContextMap()
	assert.Equal(t, "save", fields["unit"])
	assert.Equal(t, "main", fields["phase"])
	assert.Equal(t, "orders", fields["builder"])
	assert.Equal(t, b.ID().String(), fields["builder_id"])

	errs := logs.FilterMessage("commit failed").All()
	require.Len(t, errs, 1)
	assert.Equal(t, zapcore.ErrorLevel, errs[0].Level)
	assert.Equal(t, true, errs[0].ContextMap()["auto_rollback"])

	// save: started, succeeded, rollback_started, rollback_failed; post: started, failed
	assert.Equal(t, 6, logs.FilterMessage("unit transition").Len())
}

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	boom := errors.New("boom")

	b := NewBuilder(WithTracer(tp.Tracer("test")))
	b.RegisterPre(func(context.Context) error { return nil }, nil)
	b.Add(NewUnit(func(context.Context) error { return nil }, func(context.Context) error { return nil }, Named("save")))
	b.Add(NewUnit(func(context.Context) error { return boom }, nil, Named("post")))

	require.NoError(t, b.Start(context.Background()))
	require.ErrorIs(t, b.Commit(context.Background()), boom)

	ended := sr.Ended()
	names := make([]string, len(ended))
	for i, s := range ended {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{
		"uow.unit", // pre
		"uow.start",
		"uow.unit", // save
		"uow.unit", // post
		"uow.unit.rollback",
		"uow.rollback",
		"uow.commit",
	}, names)

	post := ended[3]
	assert.Equal(t, codes.Error, post.Status().Code)
	assert.Contains(t, post.Attributes(), attribute.String("uow.unit.name", "post"))
	assert.Contains(t, post.Attributes(), attribute.String("uow.unit.phase", "main"))

	commit := ended[6]
	assert.Equal(t, codes.Error, commit.Status().Code)
	assert.Contains(t, commit.Attributes(), attribute.Bool("uow.auto_rollback", true))

	// unit spans are children of the commit span
	assert.Equal(t, commit.SpanContext().SpanID(), ended[2].Parent().SpanID())
	// the rollback span is nested in the commit span too
	assert.Equal(t, commit.SpanContext().SpanID(), ended[5].Parent().SpanID())
	assert.Equal(t, ended[5].SpanContext().SpanID(), ended[4].Parent().SpanID())
}

func TestImmediateSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	b := NewBuilder(WithTracer(tp.Tracer("test")))
	_, err := RegisterImmediate(context.Background(), b, func(context.Context) (bool, error) {
		return true, nil
	}, nil, Named("reserve"))
	require.NoError(t, err)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "uow.immediate", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("uow.unit.name", "reserve"))
}
