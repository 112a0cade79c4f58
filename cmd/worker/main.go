// Worker process - runs the DAG scheduler and the execution pipeline:
// claims eligible steps, drives them through decompose/research/
// synthesize/critique/revise, and enqueues the resulting approvals.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/cascade"
	"github.com/forgelane/conductor/internal/config"
	"github.com/forgelane/conductor/internal/events"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/pipeline"
	"github.com/forgelane/conductor/internal/scheduler"
	"github.com/forgelane/conductor/internal/store"
	"github.com/forgelane/conductor/internal/version"
	"github.com/forgelane/conductor/internal/webclient"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

var configDir string

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "DAG scheduler and execution pipeline worker",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	root.AddCommand(runCmd(), migrateCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadEnv() {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the worker build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Full())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()
			ctx := context.Background()
			s, err := store.Open(ctx, os.Getenv("DATABASE_URL"))
			if err != nil {
				return err
			}
			s.Close()
			log.Println("migrations applied")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the DAG scheduler loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	loadEnv()

	rolesPath := filepath.Join(configDir, "roles.yaml")
	cfg, err := config.FromEnv(rolesPath)
	if err != nil {
		return fmt.Errorf("worker: load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("worker: connect store: %w", err)
	}
	defer s.Close()

	registry := capability.NewRegistry(cfg.Roles, cfg.Budgets)

	var llm llmclient.Client
	grpcClient, err := llmclient.Dial(cfg.LLMTiers)
	if err != nil {
		log.Printf("warning: llm collaborator unavailable: %v", err)
	} else {
		llm = &llmclient.RecordingClient{Inner: grpcClient, Store: s}
		defer grpcClient.Close()
	}

	web := webclient.NewBraveClient(cfg.BraveAPIKey)

	p := &pipeline.Pipeline{LLM: llm, Web: web, Capability: registry}
	bus := events.NewBus()
	c := &cascade.Cascade{Store: s, Bus: bus}

	sched := &scheduler.Scheduler{
		Store:    s,
		Pipeline: p,
		Cascade:  c,
		Config: scheduler.Config{
			TickInterval:   cfg.Scheduler.TickInterval,
			CandidateLimit: cfg.Scheduler.CandidateLimit,
		},
	}

	log.Println("worker started; polling for claimable steps")
	sched.Run(ctx)
	log.Println("worker shut down cleanly")
	return nil
}
