package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/tidyops/taskchain/internal/chains"
	"github.com/tidyops/taskchain/internal/config"
	"github.com/tidyops/taskchain/internal/graph"
	"github.com/tidyops/taskchain/internal/identity"
	"github.com/tidyops/taskchain/internal/logger"
	"github.com/tidyops/taskchain/internal/metrics"
	"github.com/tidyops/taskchain/internal/recurring"
	"github.com/tidyops/taskchain/internal/subscriptions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))

	log.Info("setting gin mode", "mode", cfg.GinMode)
	gin.SetMode(cfg.GinMode)

	// Initialize the graph client stack. The token source is hit per
	// request; every invocation authenticates fresh.
	tokens := identity.NewManagedTokenSource(cfg.IdentityEndpoint, cfg.IdentityHeader, cfg.GraphResource)
	graphClient := graph.NewClient(cfg.GraphBaseURL, cfg.GraphUserID, tokens,
		time.Duration(cfg.GraphTimeoutSeconds)*time.Second)

	// Initialize services
	ruleSource := chains.NewRuleSource(graphClient, cfg.RulesDriveID, cfg.RulesFilePath)
	dispatcher := chains.NewDispatcher(graphClient, ruleSource, log)
	generator := recurring.NewGenerator(graphClient, cfg.HomeListID, log)
	renewer := subscriptions.NewRenewer(graphClient,
		time.Duration(cfg.RenewalLookaheadHours)*time.Hour,
		time.Duration(cfg.RenewalExtensionMinutes)*time.Minute,
		log)

	// Initialize handlers
	webhookHandler := chains.NewHandler(dispatcher, log)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	// The remote platform validates subscriptions over GET and delivers
	// notifications over POST, on the same route.
	router.GET("/webhooks/taskchain", webhookHandler.HandleWebhook)
	router.POST("/webhooks/taskchain", webhookHandler.HandleWebhook)

	// Scheduled jobs. All schedules are evaluated in UTC.
	scheduler := cron.New(cron.WithLocation(time.UTC))

	if cfg.Recurring != nil {
		for _, job := range cfg.Recurring.Jobs {
			job := job
			if _, err := scheduler.AddFunc(job.Schedule, func() {
				generator.Run(context.Background(), job)
			}); err != nil {
				log.Error("failed to schedule recurring job", "job", job.Name, "error", err)
				os.Exit(1)
			}
			log.Info("recurring job scheduled", "job", job.Name, "schedule", job.Schedule)
		}
	} else {
		log.Warn("no recurring jobs configured")
	}

	if _, err := scheduler.AddFunc(cfg.RenewalSchedule, func() {
		renewer.RenewExpiring(context.Background())
	}); err != nil {
		log.Error("failed to schedule subscription renewal", "error", err)
		os.Exit(1)
	}
	log.Info("subscription renewal scheduled", "schedule", cfg.RenewalSchedule)

	scheduler.Start()

	port := ":" + cfg.Port
	log.Info("taskchain listening on " + port)

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	// Let in-flight scheduled jobs finish before stopping the server.
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}
