// Heartbeat process - runs the review/revision processor and the mirror
// collaborator's inbound poller as independent fixed-tick loops.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forgelane/conductor/internal/cascade"
	"github.com/forgelane/conductor/internal/config"
	"github.com/forgelane/conductor/internal/events"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/mirror"
	"github.com/forgelane/conductor/internal/review"
	"github.com/forgelane/conductor/internal/store"
	"github.com/forgelane/conductor/internal/version"
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
		Use:   "heartbeat",
		Short: "Review processor and mirror inbound poller",
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
		Short: "Print the heartbeat build version",
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
		Short: "Run the review processor and mirror inbound poller",
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
		return fmt.Errorf("heartbeat: load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("heartbeat: connect store: %w", err)
	}
	defer s.Close()

	var llm llmclient.Client
	grpcClient, err := llmclient.Dial(cfg.LLMTiers)
	if err != nil {
		log.Printf("warning: llm collaborator unavailable: %v", err)
	} else {
		llm = &llmclient.RecordingClient{Inner: grpcClient, Store: s}
		defer grpcClient.Close()
	}

	bus := events.NewBus()
	c := &cascade.Cascade{Store: s, Bus: bus}

	var mirrorSync *mirror.Sync
	var poller *mirror.Poller
	if cfg.Mirror.Enabled() {
		client := mirror.NewHTTPClient(cfg.Mirror.Endpoint, cfg.Mirror.APIKey)
		mirrorSync = &mirror.Sync{Store: s, Client: client, TeamID: cfg.Mirror.TeamID}
		poller = &mirror.Poller{
			Store:     s,
			Client:    client,
			TeamID:    cfg.Mirror.TeamID,
			APIUserID: cfg.Mirror.APIUserID,
			Interval:  cfg.Heartbeat.MirrorPollInterval,
		}
	}

	processor := &review.Processor{
		Store:   s,
		LLM:     llm,
		Cascade: c,
		Config:  review.Config{TickInterval: cfg.Heartbeat.ApprovalPollInterval},
	}
	if mirrorSync != nil {
		// Assigned only when non-nil: a nil *mirror.Sync boxed into the
		// MirrorNotifier interface would be non-nil itself and panic on use.
		processor.Mirror = mirrorSync
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		processor.Run(ctx)
	}()

	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
	} else {
		log.Println("mirror collaborator disabled: missing LINEAR_API_KEY/LINEAR_TEAM_ID")
	}

	log.Println("heartbeat started")
	<-ctx.Done()
	wg.Wait()
	log.Println("heartbeat shut down cleanly")
	return nil
}
