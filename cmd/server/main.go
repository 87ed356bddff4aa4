package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"snapsolve/internal/config"
	"snapsolve/internal/handlers"
	"snapsolve/internal/jobs"
	"snapsolve/internal/logging"
	"snapsolve/internal/middleware"
	"snapsolve/internal/services"
)

const memoryReportInterval = 15 * time.Minute

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting snapsolve analysis server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (port: %s, stage mode: %s, retries: %d)",
		cfg.Port, cfg.StageMode, cfg.RetryAttempts)
	if cfg.LLMAPIKey == "" {
		log.Println("⚠️  LLM_API_KEY is not set; upstream requests will be rejected")
	} else {
		log.Printf("🤖 Models configured (fast: %s, reasoning: %s)", cfg.FastModel, cfg.ReasoningModel)
	}

	// Initialize metrics
	metrics := services.InitMetrics()

	// Initialize services
	registry := services.NewProviderRegistry(cfg.LLM())
	memory := services.NewMemoryService()
	client := services.NewLLMClient(metrics)
	analysis := services.NewAnalysisService(registry, client, memory, metrics, services.AnalysisOptions{
		StageMode:      cfg.StageMode,
		RetryAttempts:  cfg.RetryAttempts,
		AnswerTimeout:  cfg.AnswerTimeout,
		OutputLanguage: cfg.OutputLanguage,
		ReviewCacheTTL: cfg.ReviewCacheTTL,
	})
	queue := services.NewAnalysisQueue(cfg.Concurrency)

	// Optional on-disk endpoint override, hot-reloaded on change
	if cfg.ProvidersFile != "" {
		if file, err := config.LoadProvidersFile(cfg.ProvidersFile); err != nil {
			log.Printf("⚠️  Failed to load providers file %s: %v", cfg.ProvidersFile, err)
		} else {
			registry.Apply(file)
			log.Printf("✅ Providers file loaded from %s", cfg.ProvidersFile)
		}
		go watchProvidersFile(cfg.ProvidersFile, registry)
	}

	// Start the periodic memory report
	scheduler, err := jobs.StartScheduler(jobs.NewMemoryReportJob(memory, metrics), memoryReportInterval)
	if err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "snapsolve",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("snapsolve")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Handlers
	analyzeHandler := handlers.NewAnalyzeHandler(analysis, queue, metrics)
	memoryHandler := handlers.NewMemoryHandler(memory)
	healthHandler := handlers.NewHealthHandler(analysis, queue)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api", middleware.APIKeyMiddleware(cfg.ServiceAPIKey))
	api.Post("/analyze", analyzeHandler.Handle)
	api.Get("/memory", memoryHandler.Handle)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := scheduler.Shutdown(); err != nil {
			log.Printf("⚠️  Error stopping scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error shutting down server: %v", err)
		}
	}()

	log.Printf("🌐 Listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("👋 Server stopped")
}

// watchProvidersFile re-applies the providers file whenever it changes on
// disk. The containing directory is watched (more reliable than watching the
// file directly) and events are debounced because editors fire several per
// save.
func watchProvidersFile(filePath string, registry *services.ProviderRegistry) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		return
	}

	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		return
	}

	log.Printf("👀 Watching %s for provider changes", filePath)

	const debounceDuration = 500 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reloading providers...", filePath)
					file, err := config.LoadProvidersFile(filePath)
					if err != nil {
						log.Printf("❌ Failed to reload providers file: %v", err)
						return
					}
					registry.Apply(file)
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
