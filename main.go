package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wfunc/whosaidit/config"
	"github.com/wfunc/whosaidit/logger"
	"github.com/wfunc/whosaidit/persistence"
	"github.com/wfunc/whosaidit/question"
	"github.com/wfunc/whosaidit/server"
)

const (
	releaseVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func newCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:           "whosaidit",
		Short:         "A room-based party game of truths, fibs and votes.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", ".", "directory holding config.yaml and .env")
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("whosaidit v{{.Version}}\n")
	return cmd
}

func run(ctx context.Context, configDir string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	pool, err := loadQuestions(cfg.Game.QuestionsPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load questions: %v", err)
	}
	logger.Log.Infof("Loaded %d questions", pool.Len())

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	if db != nil {
		defer db.Close()
		logger.Log.Infof("Game archive enabled (%s).", cfg.Database.Driver)
	}

	// Initialize Game Server
	gameServer, err := server.NewGameServer(cfg, pool, db, releaseVersion)
	if err != nil {
		logger.Log.Fatalf("Failed to create game server: %v", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		errs <- gameServer.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		logger.Log.Info("Shutting down.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return gameServer.Shutdown(shutdownCtx)
}

func loadQuestions(path string) (*question.Pool, error) {
	if path == "" {
		return question.Default()
	}
	return question.Load(path)
}

func main() {
	cobra.CheckErr(newCmd().Execute())
}
