package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"meetnote/internal/ai"
	"meetnote/internal/api"
	"meetnote/internal/cache"
	"meetnote/internal/config"
	"meetnote/internal/ingest"
	"meetnote/internal/jobs"
	"meetnote/internal/recall"
	"meetnote/internal/storage"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewStore(cfg.TranscriptsRoot, cfg.RetentionDays)
	if err != nil {
		log.Fatalf("Failed to open transcripts root: %v", err)
	}
	summaries, err := cache.New(cfg.SummaryCacheDir, cfg.RetentionDays)
	if err != nil {
		log.Fatalf("Failed to open summary cache: %v", err)
	}

	// Startup sweeps; the cache one repeats on an interval.
	if n, err := store.SweepTranscripts(); err != nil {
		log.Printf("Warning: transcript sweep failed: %v", err)
	} else {
		log.Printf("Transcript sweep removed %d file(s)", n)
	}
	sweeper, err := jobs.NewSweeper(cfg.CacheSweepInterval, jobs.Task{Name: "summary_cache", Sweep: summaries.Sweep})
	if err != nil {
		log.Fatalf("Failed to create sweeper: %v", err)
	}
	if err := sweeper.RunOnce(); err != nil {
		log.Printf("Warning: %v", err)
	}
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}

	client := recall.NewClient(recall.Config{
		APIKey:        cfg.RecallAPIKey,
		Region:        cfg.RecallRegion,
		BaseURL:       cfg.RecallBaseURL,
		RatePerSecond: cfg.RecallRateLimit,
	})
	if cfg.RecallAPIKey == "" {
		log.Println("Warning: RECALLAI_API_KEY not set, bot creation and transcript polling will fail")
	}
	resolver := recall.NewResolver(client)
	controller := ingest.NewController(client, client, resolver, store, cfg.DefaultProject)

	deps := api.Deps{
		Projects:       store,
		Cache:          summaries,
		Bots:           client,
		Ingestor:       controller,
		WebhookToken:   cfg.WebhookToken,
		DefaultProject: cfg.DefaultProject,
		SummaryTimeout: cfg.SummaryTimeout,
	}
	crew, err := ai.NewCrew(ai.CrewConfig{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		log.Printf("Warning: %v, /summarize will only serve cached summaries", err)
	} else {
		deps.Summarizer = ai.NewGateway(crew)
	}

	r := api.NewRouter(api.NewServer(deps))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Printf("Meeting summarizer backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := sweeper.Stop(); err != nil {
		log.Printf("Sweeper shutdown error: %v", err)
	}
}
