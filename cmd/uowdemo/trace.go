package main

import (
	"context"
	"fmt"
	"io"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// spanPrinter is a span exporter that writes one line per finished span.
type spanPrinter struct {
	out io.Writer
}

func (p *spanPrinter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fmt.Fprintf(p.out, "span %-18s %10s %s\n", s.Name(), s.EndTime().Sub(s.StartTime()), s.Status().Code)
	}
	return nil
}

func (p *spanPrinter) Shutdown(context.Context) error {
	return nil
}

// newTracer returns a tracer printing spans to out, or a no-op tracer when
// disabled.
func newTracer(out io.Writer, enabled bool) (trace.Tracer, func(context.Context)) {
	if !enabled {
		return noop.NewTracerProvider().Tracer("uowdemo"), func(context.Context) {}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(&spanPrinter{out: out}))
	return tp.Tracer("uowdemo"), func(ctx context.Context) {
		_ = tp.Shutdown(ctx)
	}
}
