// ReflectBot is a conversational reflection assistant: it analyzes user
// messages with an LLM, records structured interaction chains, keeps a
// journal and daily metrics, and supports rule capture and deep-dive modes.
// The console channel is one interface; others can attach via the gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/assembler"
	"github.com/reflectbot/reflectbot/internal/bot"
	"github.com/reflectbot/reflectbot/internal/channels/console"
	"github.com/reflectbot/reflectbot/internal/config"
	"github.com/reflectbot/reflectbot/internal/dedup"
	"github.com/reflectbot/reflectbot/internal/gateway"
	"github.com/reflectbot/reflectbot/internal/logging"
	"github.com/reflectbot/reflectbot/internal/openrouter"
	"github.com/reflectbot/reflectbot/internal/prompts"
	"github.com/reflectbot/reflectbot/internal/recorder"
	"github.com/reflectbot/reflectbot/internal/scheduler"
	"github.com/reflectbot/reflectbot/internal/session"
	"github.com/reflectbot/reflectbot/internal/stats"
	"github.com/reflectbot/reflectbot/internal/store"
	"github.com/reflectbot/reflectbot/internal/tasks"
)

const version = "0.3.0"

// consoleUserID is the fixed identity for stdin input.
const consoleUserID = 1

var (
	configDir string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "reflectbot",
	Short: "ReflectBot - a reflective journaling companion",
	Long: `ReflectBot analyzes what you tell it, records the thought chains it
finds, and keeps a journal plus daily metrics in the background.

Run without arguments to start the daemon with the console channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reflectbot", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default: .reflectbot or ~/.config/reflectbot)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New(configDir)
	if cfg.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is not set")
	}

	log, err := logging.New(debug)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	reg, err := prompts.Load(cfg.PromptsDir)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	client := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.Model)
	checker := dedup.NewChecker(db, cfg.DedupThreshold)
	runner := tasks.NewRunner(log)

	b := &bot.Bot{
		DB:            db,
		Sessions:      session.NewManager(),
		Assembler:     assembler.New(db),
		Recorder:      recorder.New(db, checker, log),
		Stats:         stats.New(db, checker, client, reg, log),
		Tasks:         runner,
		Client:        client,
		Prompts:       reg,
		Log:           log,
		RecentWindow:  cfg.RecentMessageWindow,
		JournalWindow: cfg.JournalWindow,
	}

	gw := gateway.New(func(ctx context.Context, msg gateway.Message) ([]string, error) {
		return b.HandleText(ctx, msg.UserID, msg.Username, msg.FirstName, msg.LastName, msg.Content)
	}, log)
	gw.Register(console.New(consoleUserID))

	if cfg.CheckInInterval > 0 {
		activeWindow := time.Duration(cfg.ActiveUserDays) * 24 * time.Hour
		sched := scheduler.NewRunner(db, gw, log, cfg.CheckInInterval, activeWindow, "console")
		sched.Start()
		defer sched.Stop()
	}

	log.Info("reflectbot started",
		zap.String("version", version),
		zap.String("model", cfg.Model),
		zap.String("db", cfg.DBPath))

	err = gw.StartAll(ctx)

	// Give in-flight background work a moment to land.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if cerr := runner.Close(shutdownCtx); cerr != nil {
		log.Warn("background tasks did not drain", zap.Error(cerr))
	}

	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("reflectbot stopped")
	return nil
}
