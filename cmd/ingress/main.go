// Ingress process - accepts directives over HTTP, runs the decomposition
// engine, and exposes health plus the mirror webhook receiver.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forgelane/conductor/internal/capability"
	"github.com/forgelane/conductor/internal/cascade"
	"github.com/forgelane/conductor/internal/config"
	"github.com/forgelane/conductor/internal/decomposition"
	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/events"
	"github.com/forgelane/conductor/internal/llmclient"
	"github.com/forgelane/conductor/internal/mirror"
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
		Use:   "ingress",
		Short: "Directive ingress: HTTP API, decomposition engine, mirror webhook receiver",
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
		Short: "Print the ingress build version",
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
		Short: "Run the ingress HTTP server",
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
		return fmt.Errorf("ingress: load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("ingress: connect store: %w", err)
	}
	defer s.Close()

	bus := events.NewBus()
	registry := capability.NewRegistry(cfg.Roles, cfg.Budgets)

	var llm llmclient.Client
	if grpcClient, err := llmclient.Dial(cfg.LLMTiers); err != nil {
		log.Printf("warning: llm collaborator unavailable: %v", err)
	} else {
		llm = &llmclient.RecordingClient{Inner: grpcClient, Store: s}
		defer grpcClient.Close()
	}

	var mirrorSync *mirror.Sync
	if cfg.Mirror.Enabled() {
		mirrorSync = &mirror.Sync{
			Store:  s,
			Client: mirror.NewHTTPClient(cfg.Mirror.Endpoint, cfg.Mirror.APIKey),
			TeamID: cfg.Mirror.TeamID,
		}
	}

	engine := &decomposition.Engine{
		Store:      s,
		LLM:        llm,
		Capability: registry,
	}
	if mirrorSync != nil {
		// Assigned only when non-nil: a nil *mirror.Sync boxed into the
		// MirrorNotifier interface would be non-nil itself and panic on use.
		engine.Mirror = mirrorSync
	}

	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.POST("/directives", func(c *gin.Context) {
		var body struct {
			ProjectID      string `json:"project_id" binding:"required"`
			Directive      string `json:"directive" binding:"required"`
			PlannerAgentID string `json:"planner_agent_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		project, err := s.GetProject(c.Request.Context(), body.ProjectID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown project %s", body.ProjectID)})
			return
		}

		mission, err := s.CreateMission(c.Request.Context(), domain.Mission{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			PhaseAtLink: project.Phase,
			Directive:   body.Directive,
			Status:      domain.MissionInProgress,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := engine.Run(c.Request.Context(), decomposition.Input{
			ProjectID:      body.ProjectID,
			MissionID:      mission.ID,
			Directive:      body.Directive,
			PlannerAgentID: body.PlannerAgentID,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"mission_id": mission.ID})
	})

	casc := &cascade.Cascade{Store: s, Bus: bus}
	router.POST("/missions/:id/cancel", func(c *gin.Context) {
		if err := casc.CancelMission(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "canceled"})
	})

	router.GET("/events", func(c *gin.Context) {
		ch, unsubscribe := bus.Subscribe(16)
		defer unsubscribe()
		c.Stream(func(w io.Writer) bool {
			select {
			case e, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent(string(e.Kind), e)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	})

	router.POST("/webhooks/mirror", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
			return
		}
		sig := c.GetHeader("X-Mirror-Signature")
		if cfg.Mirror.WebhookSecret == "" || !mirror.VerifyWebhook(body, sig, cfg.Mirror.WebhookSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		// Verification only; the inbound poller (heartbeat process) owns
		// turning tracker items into proposals, so this ack's the delivery.
		c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	})

	httpPort := getEnv("HTTP_PORT", "8080")
	srv := &http.Server{Addr: ":" + httpPort, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("ingress HTTP server listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
