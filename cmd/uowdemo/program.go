package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fortressi/uow"
	"github.com/fortressi/uow/internal/config"
	"github.com/fortressi/uow/metrics"
	"github.com/fortressi/uow/plan"
)

const programUnits = 3

// newProgramCmd runs three units, one of which fails.
func newProgramCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "program",
		Short: "Run three units where one fails",
		Long: `Run three main-phase units. The unit selected with --fail-unit throws,
and every unit that already ran is rolled back in reverse order.

Examples:
  # Unit 3 fails, units 2 and 1 are rolled back
  uowdemo program

  # Unit 2 fails and the rollback of unit 1 fails too
  uowdemo program --fail-unit 2 --fail-rollback 1

  # Roll back by hand instead of automatically
  uowdemo program --auto-rollback=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProgram(cmd, f)
		},
	}
}

func runProgram(cmd *cobra.Command, f *flags) error {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	tracer, shutdown := newTracer(out, cfg.Demo.Trace)
	defer shutdown(ctx)

	collector := metrics.New(nil)
	b := uow.NewBuilder(
		uow.WithName("program"),
		uow.WithLogger(log),
		uow.WithTracer(tracer),
		uow.WithObserver(collector),
	)

	if err := b.Start(ctx); err != nil {
		return err
	}
	for i := 1; i <= programUnits; i++ {
		b.Add(programUnit(out, i, cfg.Demo))
	}

	commitErr := b.Commit(ctx, uow.AutoRollback(cfg.Demo.AutoRollback))
	if commitErr != nil {
		fmt.Fprintf(out, "Commit failed: %v\n", commitErr)
		if !cfg.Demo.AutoRollback {
			fmt.Fprintln(out, "Rolling back by hand")
			if err := b.Rollback(ctx); err != nil {
				fmt.Fprintf(out, "Rollback failed: %v\n", err)
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, b.Journal())

	if cfg.Demo.DOT {
		g, err := plan.Build(b)
		if err != nil {
			return err
		}
		if err := printPlan(out, "program", g); err != nil {
			return err
		}
	}
	if cfg.Demo.Metrics {
		if err := printMetrics(out, collector); err != nil {
			return err
		}
	}
	return nil
}

func programUnit(out io.Writer, n int, cfg config.DemoConfig) *uow.Unit {
	action := func(_ context.Context) error {
		if n == cfg.FailUnit {
			fmt.Fprintf(out, "Unit #%d Exception\n", n)
			return fmt.Errorf("unit #%d exception", n)
		}
		fmt.Fprintf(out, "Unit #%d Run\n", n)
		return nil
	}
	rollback := func(_ context.Context) error {
		fmt.Fprintf(out, "Unit #%d Rollback\n", n)
		if n == cfg.FailRollback {
			return fmt.Errorf("unit #%d rollback exception", n)
		}
		return nil
	}
	return uow.NewUnit(action, rollback, uow.Named(fmt.Sprintf("unit-%d", n)))
}
