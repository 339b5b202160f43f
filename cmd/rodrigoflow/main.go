package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redeelle/rodrigo-flow-app/internal/config"
	"github.com/redeelle/rodrigo-flow-app/internal/llm"
	"github.com/redeelle/rodrigo-flow-app/internal/llm/anthropic"
	"github.com/redeelle/rodrigo-flow-app/internal/llm/gemini"
	"github.com/redeelle/rodrigo-flow-app/internal/llm/openai"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

var cfg config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:           "rodrigoflow",
		Short:         "Sales objection coaching with a manager dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			// Logs go to stderr except for the server so command output stays clean.
			logOut := os.Stderr
			if cmd.Name() == "serve" {
				logOut = os.Stdout
			}
			setupLogging(cfg.LogLevel, logOut)
			return cfg.Validate()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(tailCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging(level string, w io.Writer) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel(level)})
	slog.SetDefault(slog.New(handler))
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore connects to the configured interaction store.
func openStore(ctx context.Context, c config.Config) (store.Store, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	opts := store.Options{
		Driver:               c.StoreDriver,
		DatabaseURL:          c.DatabaseURL,
		SQLitePath:           c.SQLitePath,
		Collection:           c.Collection,
		Location:             loc,
		Logger:               slog.Default(),
		FirestoreCredentials: []byte(c.FirebaseServiceKey),
	}
	return store.Open(ctx, opts)
}

// newCompleter builds the chat client for the configured provider.
func newCompleter(ctx context.Context, c config.Config) (llm.Completer, error) {
	if err := c.ValidateLLM(); err != nil {
		return nil, err
	}
	switch c.LLMProvider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(c.AnthropicAPIKey, c.AnthropicModel, c.LLMTimeout), nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, c.GeminiAPIKey, c.GeminiModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return openai.NewClient(c.OpenAIAPIKey, c.OpenAIModel, c.LLMTimeout), nil
	}
}
