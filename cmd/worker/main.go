package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bandprep/internal/config"
	"bandprep/internal/db"
	"bandprep/internal/eval"
	"bandprep/internal/jobs"

	"github.com/spf13/cobra"
)

var (
	daemonMode bool
	maxJobs    int
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "worker",
		Short:         "Background workers that score pending submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&daemonMode, "daemon", false, "keep polling instead of exiting on an empty queue")
	root.PersistentFlags().IntVar(&maxJobs, "max-jobs", 0, "stop after N successfully processed jobs (0 = unlimited)")

	root.AddCommand(
		&cobra.Command{
			Use:   "writing",
			Short: "Process pending essay submissions",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(logger, "writing")
			},
		},
		&cobra.Command{
			Use:   "speaking",
			Short: "Process pending speaking submissions",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(logger, "speaking")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List workers with a heartbeat in the last 5 minutes",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStatus(cmd.Context())
			},
		},
	)

	if err := root.Execute(); err != nil {
		logger.Error("worker failed", "err", err)
		os.Exit(1)
	}
}

// runPipeline wires one pipeline's store and evaluator into the shared loop.
// Store connectivity is the only fatal error; everything per-job is absorbed
// into terminal row state.
func runPipeline(logger *slog.Logger, pipeline string) error {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	if err := db.Ping(gdb); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}

	w := &jobs.Worker{
		ID:       cfg.WorkerID,
		Pipeline: pipeline,
		Registry: &jobs.Registry{DB: gdb},
		Daemon:   daemonMode,
		MaxJobs:  maxJobs,
		Log:      logger,
	}

	switch pipeline {
	case "writing":
		w.Store = &jobs.WritingStore{DB: gdb}
		w.Evaluator = eval.NewWritingClient(cfg.AIServiceURL, cfg.UploadDir)
		w.Validate = jobs.ValidateWriting
	case "speaking":
		w.Store = &jobs.SpeakingStore{DB: gdb}
		w.Evaluator = eval.NewSpeakingClient(cfg.SpeakingAIServiceURL, cfg.UploadDir)
		w.Validate = jobs.ValidateSpeaking
	default:
		return fmt.Errorf("unknown pipeline %q", pipeline)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processed := w.Run(ctx)
	logger.Info("worker finished", "worker_id", cfg.WorkerID, "pipeline", pipeline, "processed", processed)
	return nil
}

func runStatus(ctx context.Context) error {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}

	reg := &jobs.Registry{DB: gdb}
	active, err := reg.Active(ctx)
	if err != nil {
		return err
	}

	if len(active) == 0 {
		fmt.Println("no active workers")
		return nil
	}
	for _, w := range active {
		fmt.Printf("%s\t%s\tlast heartbeat %s\n", w.WorkerID, w.Status, w.LastHeartbeat.Format("2006-01-02 15:04:05"))
	}
	return nil
}
