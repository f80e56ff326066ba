package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fortressi/uow"
	"github.com/fortressi/uow/examples/someservice"
	"github.com/fortressi/uow/metrics"
	"github.com/fortressi/uow/plan"
)

var serviceSteps = []string{
	someservice.StepSaveFile,
	someservice.StepPostRest,
	someservice.StepCommitDB,
}

// newServiceCmd composes a transactional service into an outer unit of work.
func newServiceCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "service",
		Short: "Subscribe a transactional service to a request",
		Long: `Subscribe a service that saves a file, posts to a REST endpoint and
commits a database transaction to an outer request. Units are numbered in
that order for --fail-unit and --fail-rollback.

Examples:
  # The database commit fails and the service undoes its work
  uowdemo service --fail-unit 3

  # Print the nested plan
  uowdemo service --fail-unit 0 --dot`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd, f)
		},
	}
}

func runService(cmd *cobra.Command, f *flags) error {
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
	opts := []uow.Option{uow.WithLogger(log), uow.WithTracer(tracer), uow.WithObserver(collector)}

	var svcOpts []someservice.Option
	if n := cfg.Demo.FailUnit; n > 0 {
		svcOpts = append(svcOpts, someservice.FailStep(serviceSteps[n-1], errors.New("step failed")))
	}
	if n := cfg.Demo.FailRollback; n > 0 {
		svcOpts = append(svcOpts, someservice.FailRollback(serviceSteps[n-1], errors.New("rollback failed")))
	}

	svc, err := someservice.New(uow.NewBuilder(append(opts, uow.WithName("someservice"))...), out, svcOpts...)
	if err != nil {
		return err
	}
	if err := svc.SaveFileThenRestThenDatabase(); err != nil {
		return err
	}

	request := uow.NewBuilder(append(opts, uow.WithName("request"))...)
	request.Subscribe(svc)

	orderID, err := uow.RegisterImmediate(ctx, request, func(context.Context) (string, error) {
		fmt.Fprintln(out, "Reserving order number")
		return "order-1001", nil
	}, func(context.Context) error {
		fmt.Fprintln(out, "Releasing order number")
		return nil
	}, uow.Named("reserve_order"))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Reserved %s\n", orderID)

	request.Register(func(context.Context) error {
		id, _ := uow.LookupTyped[string](request, "reserve_order")
		fmt.Fprintf(out, "Sending confirmation for %s\n", id)
		return nil
	}, nil)

	if err := request.Start(ctx); err != nil {
		return err
	}
	if err := request.Commit(ctx, uow.AutoRollback(cfg.Demo.AutoRollback)); err != nil {
		fmt.Fprintf(out, "Commit failed: %v\n", err)
		if !cfg.Demo.AutoRollback {
			fmt.Fprintln(out, "Rolling back by hand")
			if err := request.Rollback(ctx); err != nil {
				fmt.Fprintf(out, "Rollback failed: %v\n", err)
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, request.Journal())

	if cfg.Demo.DOT {
		g, err := plan.Build(request)
		if err != nil {
			return err
		}
		if err := printPlan(out, "request", g); err != nil {
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
