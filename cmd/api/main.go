package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"talentbase/hiring-pipeline/internal/config"
	"talentbase/hiring-pipeline/internal/handlers"
	"talentbase/hiring-pipeline/internal/logger"
	"talentbase/hiring-pipeline/internal/pipeline"
	"talentbase/hiring-pipeline/internal/queue"
	"talentbase/hiring-pipeline/internal/repositories"
	"talentbase/hiring-pipeline/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	development := cfg.Server.Env == "development"
	zapLogger, err := logger.New(!development, development)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	appLog := zapLogger.Sugar()

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		appLog.Fatalw("failed to initialize database", "error", err)
	}
	appLog.Info("database connected and migrated")

	// Repositories
	jobRepo := repositories.NewJobRepository(db)
	applicantRepo := repositories.NewApplicantRepository(db)

	// Durable work queue, shared with the record store so enqueues join the
	// pipeline's transactions.
	workQueue := queue.NewGormQueue(db, cfg.Worker.QueueVisibility, appLog)

	// Resume object store
	store, err := storage.NewMinioStore(
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.Bucket,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		appLog.Fatalw("failed to initialize object store", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureBucket(ctx); err != nil {
		cancel()
		appLog.Fatalw("failed to ensure resume bucket", "error", err)
	}
	cancel()
	appLog.Infow("object store ready", "bucket", cfg.Minio.Bucket)

	// Pipeline core
	controller := pipeline.NewController(db, jobRepo, applicantRepo, workQueue, appLog)
	stages := pipeline.NewStageManager(db, jobRepo, applicantRepo, appLog)

	// Handlers
	publicHandler := handlers.NewPublicHandler(jobRepo, controller, store, cfg.Upload.MaxFileSize, appLog)
	jobHandler := handlers.NewJobHandler(jobRepo, controller, appLog)
	interviewHandler := handlers.NewInterviewHandler(stages, controller, jobRepo, applicantRepo, store, appLog)
	workerHandler := handlers.NewWorkerHandler(controller, workQueue, appLog)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Hiring Pipeline API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1024*1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Employer-ID",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Candidate-facing surface
	api.Get("/jobs", publicHandler.HandleListJobs)
	api.Get("/jobs/:id", publicHandler.HandleGetJob)
	api.Post("/jobs/:id/apply", publicHandler.HandleApply)

	// Employer surface
	employer := api.Group("/employer")
	employer.Post("/jobs", jobHandler.HandleCreateJob)
	employer.Get("/jobs", jobHandler.HandleListJobs)
	employer.Get("/jobs/:id", jobHandler.HandleGetJob)
	employer.Put("/jobs/:id", jobHandler.HandleUpdateJob)
	employer.Post("/jobs/:id/rescore", jobHandler.HandleRescore)
	employer.Post("/applicants/:id/advance-stage", interviewHandler.HandleAdvanceStage)
	employer.Put("/applicants/:id/interview-status", interviewHandler.HandleSetInterviewStatus)
	employer.Post("/applicants/:id/requeue", interviewHandler.HandleRequeue)
	employer.Get("/applicants/:id/resume", interviewHandler.HandleGetResume)

	// AI worker surface
	worker := api.Group("/worker", handlers.RequireWorkerKey(cfg.Worker.APIKey))
	worker.Get("/tasks", workerHandler.HandleLeaseTasks)
	worker.Post("/tasks/:id/complete", workerHandler.HandleCompleteTask)
	worker.Post("/applicants/:id/status", workerHandler.HandleReportStatus)
	worker.Post("/applicants/:id/parsed", workerHandler.HandleReportParsed)
	worker.Post("/applicants/:id/matched-skills", workerHandler.HandleReportMatchedSkills)
	worker.Post("/applicants/:id/scores", workerHandler.HandleReportScores)
	worker.Post("/applicants/:id/queue-scoring", workerHandler.HandleQueueScoring)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		appLog.Info("shutting down server")
		if err := app.Shutdown(); err != nil {
			appLog.Errorw("server forced to shutdown", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	appLog.Infow("server starting", "addr", addr)

	if err := app.Listen(addr); err != nil {
		appLog.Fatalw("failed to start server", "error", err)
	}
}
