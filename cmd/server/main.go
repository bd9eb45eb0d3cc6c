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

	"github.com/Joniyal/tudum/internal/ai"
	"github.com/Joniyal/tudum/internal/alarm"
	"github.com/Joniyal/tudum/internal/config"
	"github.com/Joniyal/tudum/internal/database"
	"github.com/Joniyal/tudum/internal/habits"
	"github.com/Joniyal/tudum/internal/notify"
	"github.com/Joniyal/tudum/internal/reminder"
	"github.com/Joniyal/tudum/internal/repository"
	"github.com/Joniyal/tudum/internal/scheduler"
	"github.com/Joniyal/tudum/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate required config
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	habitService := habits.NewService(habitRepo, completionRepo)
	source := reminder.New(habitRepo, completionRepo)

	// Alarm tracker is the single source of truth for ringing alarms
	tracker := alarm.NewTracker(habitService)
	defer tracker.Shutdown()

	// Start the background due-reminder poll
	sched := scheduler.New(source, tracker)
	go sched.Start(ctx)

	// Initialize AI client (optional)
	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, motivation lines disabled")
	}

	// Start the Telegram notifier (optional)
	if cfg.TelegramToken != "" {
		notifier, err := notify.New(cfg.TelegramToken, tracker, userRepo, aiClient)
		if err != nil {
			log.Fatalf("Failed to create Telegram notifier: %v", err)
		}
		go func() {
			if err := notifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Telegram notifier error: %v", err)
			}
		}()
		log.Println("Telegram notifier started")
	} else {
		log.Println("TELEGRAM_TOKEN not set, background notifications disabled")
	}

	// Expire stale sessions periodically
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sessionRepo.DeleteExpired(ctx, time.Now()); err != nil {
					log.Printf("Failed to delete expired sessions: %v", err)
				}
			}
		}
	}()

	srv := server.New(server.Deps{
		DB:           db,
		Users:        userRepo,
		Sessions:     sessionRepo,
		Habits:       habitRepo,
		Completions:  completionRepo,
		Connections:  connectionRepo,
		Messages:     messageRepo,
		HabitService: habitService,
		Source:       source,
		Tracker:      tracker,
		MediaDir:     cfg.MediaDir,
		SessionTTL:   time.Duration(cfg.SessionTTLHrs) * time.Hour,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}()

	log.Printf("Listening on %s", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
}
