package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"pid-fan-controller/internal/config"
	"pid-fan-controller/internal/fancontrol"
	"pid-fan-controller/internal/logging"
	"pid-fan-controller/internal/web"
)

const (
	exitStartup  = 1
	exitFanModes = 2
)

var serveStatusFn = web.Serve

type options struct {
	configPath    string
	verbose       bool
	runFanControl bool
	resetFanModes bool
	logFile       string
	logMaxSizeMB  int
	statusAddr    string
}

// exitError carries the process exit code and the message prefix for a
// failure that is not a plain startup error.
type exitError struct {
	code   int
	prefix string
	err    error
}

func (e *exitError) Error() string { return fmt.Sprintf("%s: %v", e.prefix, e.err) }

func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(&options{})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(stderr, ee.Error())
		return ee.code
	}
	fmt.Fprintf(stderr, "Error starting program: %v\n", err)
	return exitStartup
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pid-fan-controller",
		Short: "drive hwmon fans from temperature sensors with per-sensor PID loops",
		Long: "pid-fan-controller reads temperature sensors, runs one PID controller per\n" +
			"sensor and writes the hottest result of each fan's sensors to its PWM file.\n\n" +
			"The config file is taken from --config, then $" + config.PathEnv + ", then " + config.DefaultPath + ".",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file path (yaml)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every reading and pwm write")
	f.BoolVar(&opts.runFanControl, "run-fan-control", false, "take manual control of the fans and run the control loop")
	f.BoolVar(&opts.resetFanModes, "reset-fan-modes", false, "hand every fan back to automatic control and exit")
	f.StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this file, rotated by size")
	f.IntVar(&opts.logMaxSizeMB, "log-max-size-mb", logging.DefaultMaxSizeMB, "rotate the log file after this many megabytes")
	f.StringVar(&opts.statusAddr, "status-addr", "", "serve GET /api/status on this address while the loop runs (e.g. 127.0.0.1:9101)")

	cmd.MarkFlagsMutuallyExclusive("run-fan-control", "reset-fan-modes")
	cmd.MarkFlagsOneRequired("run-fan-control", "reset-fan-modes")
	return cmd
}

func execute(cmd *cobra.Command, opts *options) error {
	logger, err := logging.New(logging.Options{
		Verbose:   opts.verbose,
		File:      opts.logFile,
		MaxSizeMB: opts.logMaxSizeMB,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer logger.Close()

	path := config.ResolvePath(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	ctrl, err := fancontrol.New(cfg, logger)
	if err != nil {
		return err
	}

	// Bind before any fan is touched: a busy address is a startup error.
	var statusLn net.Listener
	if opts.runFanControl && opts.statusAddr != "" {
		statusLn, err = web.Listen(opts.statusAddr)
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		defer statusLn.Close()
	}

	if opts.resetFanModes {
		if err := ctrl.SetControlModes(fancontrol.ModeAuto); err != nil {
			return &exitError{code: exitFanModes, prefix: "Error setting control mode back to auto", err: err}
		}
		return nil
	}

	if err := ctrl.SetControlModes(fancontrol.ModeManual); err != nil {
		return &exitError{code: exitFanModes, prefix: "Error setting initial control modes", err: err}
	}
	logger.Info("control loop starting config=%s interval=%s sources=%d fans=%d",
		path, ctrl.Interval(), len(ctrl.Sources()), len(ctrl.Fans()))

	err = runControl(cmd.Context(), ctrl, statusLn, logger)
	logger.Info("control loop stopped")
	_ = logger.Sync()
	fmt.Fprintln(cmd.ErrOrStderr(), "fans left in manual mode; run with --reset-fan-modes to return them to automatic control")
	return err
}

// runControl runs the control loop, and the status server when statusLn is
// set, until SIGINT, SIGTERM or ctx is done. The status server failing is
// logged and never stops the loop.
func runControl(ctx context.Context, ctrl *fancontrol.Controller, statusLn net.Listener, logger *logging.Logger) error {
	var g run.Group
	{
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			<-sigCtx.Done()
			return nil
		}, func(error) {
			stop()
		})
	}
	{
		loopCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return ctrl.Run(loopCtx)
		}, func(error) {
			cancel()
		})
	}
	if statusLn != nil {
		srvCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			logger.Info("status server listening addr=%s", statusLn.Addr())
			if err := serveStatusFn(srvCtx, statusLn, ctrl); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("status server stopped: %v", err)
			}
			<-srvCtx.Done()
			return nil
		}, func(error) {
			cancel()
		})
	}
	if err := g.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
