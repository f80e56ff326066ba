// Package main implements uowdemo, a console demonstration of compensating
// units of work.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fortressi/uow/internal/config"
	"github.com/fortressi/uow/internal/logging"
	"github.com/fortressi/uow/metrics"
	"github.com/fortressi/uow/plan"
)

var version = "dev"

// flags holds the persistent command-line flags.
type flags struct {
	configPath   string
	failUnit     int
	failRollback int
	autoRollback bool
	dot          bool
	trace        bool
	metrics      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "uowdemo",
		Short: "Demonstrate compensating units of work",
		Long: `uowdemo registers a few units of work, makes one of them fail and shows
how the completed ones are rolled back in reverse order.

Configuration is read from an optional YAML file, then UOW_* environment
variables, then command-line flags.`,
		Version:      version,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	pf.IntVar(&f.failUnit, "fail-unit", 3, "unit whose action fails (0 for none)")
	pf.IntVar(&f.failRollback, "fail-rollback", 0, "unit whose rollback fails (0 for none)")
	pf.BoolVar(&f.autoRollback, "auto-rollback", true, "roll back automatically when commit fails")
	pf.BoolVar(&f.dot, "dot", false, "print the plan in Graphviz DOT format")
	pf.BoolVar(&f.trace, "trace", false, "print the spans recorded while running")
	pf.BoolVar(&f.metrics, "metrics", false, "print the collected Prometheus metrics")

	cmd.AddCommand(newProgramCmd(f))
	cmd.AddCommand(newServiceCmd(f))
	return cmd
}

// loadConfig loads configuration and applies flags set on the command line.
func (f *flags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags()
	if set.Changed("fail-unit") {
		cfg.Demo.FailUnit = f.failUnit
	}
	if set.Changed("fail-rollback") {
		cfg.Demo.FailRollback = f.failRollback
	}
	if set.Changed("auto-rollback") {
		cfg.Demo.AutoRollback = f.autoRollback
	}
	if set.Changed("dot") {
		cfg.Demo.DOT = f.dot
	}
	if set.Changed("trace") {
		cfg.Demo.Trace = f.trace
	}
	if set.Changed("metrics") {
		cfg.Demo.Metrics = f.metrics
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log, zapcore.AddSync(cmd.ErrOrStderr()))
}

func printPlan(out io.Writer, name string, g *plan.Graph) error {
	dot, err := g.ExportToDot(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, dot)
	return nil
}

func printMetrics(out io.Writer, c *metrics.Collector) error {
	fmt.Fprintln(out)
	return c.WriteText(out)
}
