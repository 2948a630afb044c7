// Package main is the entry point for the Maestro server.
// Maestro is a conversational assistant backend: it routes chat messages
// through a language model, dispatches the returned directives to skill
// connectors (video, music, weather, time, web links), and persists user
// accounts and conversation history in SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maestro-ai/maestro/internal/auth"
	"github.com/maestro-ai/maestro/internal/chat"
	"github.com/maestro-ai/maestro/internal/config"
	"github.com/maestro-ai/maestro/internal/data"
	"github.com/maestro-ai/maestro/internal/llm"
	"github.com/maestro-ai/maestro/internal/server"
	"github.com/maestro-ai/maestro/internal/skills"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "maestro",
		Short: "Maestro - conversational assistant backend",
		Long: `Maestro serves a web chat client: it routes messages through a
language model, dispatches the returned directives to skill connectors
(YouTube, Spotify, weather, time, web links), and stores accounts and
conversation history in SQLite.

Run the server:      maestro serve
Inspect config:      maestro config
Write default file:  maestro config init`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.maestro/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Maestro v%s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// setupLogging configures the global zerolog logger from config: console
// writer for local development, raw JSON otherwise.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERVE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Maestro API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Session.Secret == "" {
				return fmt.Errorf("session.secret is required to serve; set it in the config file or via SESSION_SECRET")
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			store, err := data.NewDB(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			provider, err := llm.NewProvider(cfg)
			if err != nil {
				return fmt.Errorf("configure model provider: %w", err)
			}

			authCfg := auth.DefaultConfig()
			authCfg.Secret = cfg.Session.Secret
			authCfg.SessionTTL = cfg.Session.TTL
			authSvc := auth.NewService(auth.NewStore(store.DB()), authCfg)

			dispatcher := chat.NewDispatcher(store, provider, skills.NewDefaultRegistry(cfg), cfg)
			srv := server.New(cfg, store, authSvc, provider, dispatcher)

			log.Info().
				Str("version", version).
				Str("provider", provider.Name()).
				Str("model", cfg.LLM.Model).
				Str("db", cfg.Database.Path).
				Msg("maestro starting")

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			case err := <-errCh:
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMAND GROUP
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgPath
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				path = filepath.Join(home, ".maestro", "config.yaml")
			}

			if _, err := os.Stat(path); err == nil {
				fmt.Printf("Config already exists at %s\n", path)
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := config.Default().SaveToPath(path); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		},
	})

	return cmd
}
