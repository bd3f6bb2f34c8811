// Command taskmeshd runs the task execution daemon: HTTP API, WebSocket
// gateway and the worker loop, over an in-memory or SQLite store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/taskmesh"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	anthropicreasoner "github.com/hupe1980/taskmesh/reasoning/anthropic"
	openaireasoner "github.com/hupe1980/taskmesh/reasoning/openai"
	"github.com/hupe1980/taskmesh/server"
	memorystore "github.com/hupe1980/taskmesh/store/memory"
	sqlitestore "github.com/hupe1980/taskmesh/store/sqlite"
	"github.com/hupe1980/taskmesh/worker"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskmeshd",
		Short: "Durable agent task execution daemon",
		Long: `taskmeshd serves the task lifecycle API, streams task events over
WebSocket and runs the worker loop that executes tasks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("store", "memory", "Store backend (memory or sqlite)")
	flags.String("sqlite-path", "taskmesh.db", "SQLite database path")
	flags.String("provider", "", "Reasoning provider (anthropic or openai, empty for none)")
	flags.Int("max-concurrent", worker.DefaultMaxConcurrentTasks, "Max concurrent task loops")
	flags.Duration("poll-interval", worker.DefaultPollInterval, "Queue poll interval")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log format (json or text)")

	for _, name := range []string{
		"addr", "store", "sqlite-path", "provider",
		"max-concurrent", "poll-interval", "log-level", "log-format",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetConfigName("taskmesh")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.taskmesh")
	viper.SetEnvPrefix("TASKMESH")
	viper.AutomaticEnv()

	return rootCmd
}

func run() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger := logging.NewSlogLogger(parseLevel(viper.GetString("log-level")), viper.GetString("log-format"), false)

	store, cleanup, err := openStore(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	reasoner, err := buildReasoner()
	if err != nil {
		return err
	}

	mesh := taskmesh.New(func(o *taskmesh.Options) {
		o.Store = store
		o.Reasoner = reasoner
		o.Logger = logger
		o.WorkerOptions = []func(o *worker.Options){
			func(o *worker.Options) {
				o.MaxConcurrentTasks = viper.GetInt("max-concurrent")
				o.PollInterval = viper.GetDuration("poll-interval")
			},
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mesh.Start(ctx)
	defer mesh.Stop()

	srv := server.New(store, mesh.Queue(), func(o *server.Options) {
		o.Addr = viper.GetString("addr")
		o.Gateway = mesh.Gateway()
		o.Artifacts = mesh.Artifacts()
		o.Logger = logger
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(logger logging.Logger) (core.Store, func(), error) {
	switch viper.GetString("store") {
	case "memory", "":
		return memorystore.NewStore(), func() {}, nil
	case "sqlite":
		path := viper.GetString("sqlite-path")
		store, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite store opened", "path", path)
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", viper.GetString("store"))
	}
}

func buildReasoner() (core.Reasoner, error) {
	switch viper.GetString("provider") {
	case "anthropic":
		return anthropicreasoner.NewReasoner(), nil
	case "openai":
		return openaireasoner.NewReasoner(), nil
	case "":
		// No provider: tasks answer immediately. Useful for smoke testing the
		// API and gateway without credentials.
		return immediateReasoner{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", viper.GetString("provider"))
	}
}

// immediateReasoner answers every task with its goal echoed back.
type immediateReasoner struct{}

func (immediateReasoner) Think(_ context.Context, tc core.ThinkContext) (*core.Decision, error) {
	return &core.Decision{
		Action: core.ActionAnswer,
		Answer: "no reasoning provider configured; goal was: " + tc.Goal,
	}, nil
}

func parseLevel(s string) logging.LogLevel {
	switch s {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
