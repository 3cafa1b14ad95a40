// Command roverd runs the rover coordination core on the host against a
// simulated timer. Lines read from stdin are treated as serial RX frames.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/rovercore"
	"github.com/comalice/rovercore/internal/bench"
	"github.com/comalice/rovercore/internal/config"
	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/internal/extensibility"
	"github.com/comalice/rovercore/internal/hal"
	rlog "github.com/comalice/rovercore/internal/log"
	"github.com/comalice/rovercore/internal/metrics"
	"github.com/comalice/rovercore/internal/primitives"
	"github.com/comalice/rovercore/internal/production"
	"github.com/comalice/rovercore/realtime"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	readStdin := flag.Bool("stdin", true, "read serial RX frames from stdin")
	flag.Parse()

	if err := run(*configPath, *readStdin); err != nil {
		fmt.Fprintln(os.Stderr, "roverd:", err)
		os.Exit(1)
	}
}

func run(configPath string, readStdin bool) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	closer := rlog.Setup(rlog.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer closer.Close()
	logger := rlog.WithComponent("roverd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	button := extensibility.NewScriptedEventSource(nil)
	machineOpts := []core.Option{
		core.WithMachineID(cfg.FSM.MachineID),
		core.WithActuators(extensibility.NewLoggingActuators(&extensibility.DefaultActuators{}, slog.Default())),
		core.WithEventSource(button),
		core.WithPublisher(logPublisher{logger: rlog.WithComponent("transitions")}),
		core.WithVisualizer(&production.DefaultVisualizer{}),
		core.WithLogger(slog.Default()),
	}

	reg := prometheus.NewRegistry()
	var rec *metrics.PrometheusRecorder
	if cfg.Metrics.Enabled {
		rec = metrics.NewPrometheusRecorder(reg)
		machineOpts = append(machineOpts, core.WithRecorder(rec))
	}

	if cfg.Persist.Dir != "" {
		p, err := production.NewPersister(cfg.Persist.Dir, cfg.Persist.Format)
		if err != nil {
			return err
		}
		machineOpts = append(machineOpts, core.WithPersister(p))
	}
	if cfg.Persist.RegistryPath != "" {
		r, err := production.OpenSQLiteRegistry(ctx, cfg.Persist.RegistryPath)
		if err != nil {
			return err
		}
		defer r.Close()
		machineOpts = append(machineOpts, core.WithRegistry(r))
	}

	fsm := core.NewMachine(machineOpts...)

	roverOpts := []rovercore.Option{
		rovercore.WithSchedulerConfig(realtime.Config{
			BasePeriod:     cfg.Scheduler.BasePeriod,
			BudgetFraction: cfg.Scheduler.BudgetFraction,
			QueueDepth:     cfg.Scheduler.QueueDepth,
		}),
		rovercore.WithReceiver(commandReceiver(fsm, rlog.WithComponent("rx"))),
		rovercore.WithHaltHandler(func(_ context.Context, cause error) {
			logger.Error("rover halted, safe mode engaged", "error", cause)
		}),
		rovercore.WithLogger(slog.Default()),
	}
	if rec != nil {
		roverOpts = append(roverOpts, rovercore.WithMetrics(rec))
	}

	rover, err := rovercore.New(hal.NewSimTimer(cfg.Scheduler.TimerFrequencyHz), fsm, roverOpts...)
	if err != nil {
		return err
	}

	if cfg.Bench.Listen != "" {
		benchCfg := bench.Config{Listen: cfg.Bench.Listen, Button: button}
		if cfg.Metrics.Enabled {
			benchCfg.Gatherer = reg
		}
		srv := bench.New(benchCfg, fsm, rover.Scheduler(), slog.Default())
		go func() {
			if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("bench server failed", "error", err)
			}
		}()
	}

	if readStdin {
		go pumpRX(ctx, os.Stdin, rover, logger)
	}

	logger.Info("rover running", "machine_id", cfg.FSM.MachineID, "boot_id", fsm.BootID())
	return rover.Run(ctx)
}

// pumpRX feeds each input line into the aperiodic queue, like bytes arriving
// on the companion computer's serial link.
func pumpRX(ctx context.Context, r io.Reader, rover *rovercore.Rover, logger *slog.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Bytes()
		if len(line) > primitives.RecordSize {
			logger.Warn("rx frame truncated", "len", len(line), "max", primitives.RecordSize)
		}
		if !rover.EnqueueWork(line) {
			logger.Warn("rx queue full, frame dropped", "len", len(line))
		}
	}
}

// commandReceiver posts a frame that names an event ("start", "obstacle",
// ...) to the state machine and logs anything else.
func commandReceiver(fsm *core.Machine, logger *slog.Logger) realtime.WorkFunc {
	return func(_ context.Context, rec primitives.Record) {
		text := strings.TrimSpace(string(rec.Bytes()))
		if ev, err := core.ParseEvent(text); err == nil {
			fsm.Post(ev)
			return
		}
		logger.Info("rx frame", "len", rec.Len, "data", text)
	}
}

type logPublisher struct {
	logger *slog.Logger
}

func (p logPublisher) Publish(_ context.Context, rec core.TransitionRecord) error {
	p.logger.Info("transition", "seq", rec.Seq, "from", rec.From, "to", rec.To, "events", rec.Events)
	return nil
}

func (p logPublisher) Close() error { return nil }
