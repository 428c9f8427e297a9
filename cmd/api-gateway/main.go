package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tutoria-app/tutoria-api/api/swagger"
	"github.com/tutoria-app/tutoria-api/internal/handler"
	internalmiddleware "github.com/tutoria-app/tutoria-api/internal/middleware"
	"github.com/tutoria-app/tutoria-api/internal/repository"
	"github.com/tutoria-app/tutoria-api/internal/service"
	"github.com/tutoria-app/tutoria-api/pkg/cache"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	"github.com/tutoria-app/tutoria-api/pkg/database"
	"github.com/tutoria-app/tutoria-api/pkg/jobs"
	"github.com/tutoria-app/tutoria-api/pkg/logger"
	corsmiddleware "github.com/tutoria-app/tutoria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutoria-app/tutoria-api/pkg/middleware/requestid"
	"github.com/tutoria-app/tutoria-api/pkg/storage"
)

// @title Tutoria API
// @version 0.1.0
// @description Tutoring marketplace backend
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	localStore, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	tutorshipRepo := repository.NewTutorshipRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsService := service.NewMetricsService()

	var reviewService *service.ReviewService
	rankingQueue := jobs.NewQueue("rankings", func(ctx context.Context, job jobs.Job) error {
		return reviewService.HandleRankingJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Rankings.Workers,
		MaxRetries: cfg.Rankings.MaxRetries,
		RetryDelay: cfg.Rankings.RetryDelay,
		Logger:     logr,
	})
	rankingQueue.Start(context.Background())
	defer rankingQueue.Stop()

	authService := service.NewAuthService(userRepo, professorRepo, cfg.JWT, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	professorService := service.NewProfessorService(professorRepo, userRepo, subjectRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	availabilityService := service.NewAvailabilityService(availabilityRepo, professorRepo, cacheRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, tutorshipRepo, cacheRepo, validate, logr)
	slotService := service.NewSlotService(availabilityRepo, scheduleRepo, professorRepo, cacheRepo, metricsService, cfg.Slots, logr)
	tutorshipService := service.NewTutorshipService(tutorshipRepo, professorRepo, subjectRepo, cfg.Booking, validate, logr)
	paymentService := service.NewPaymentService(paymentRepo, tutorshipRepo, validate, logr)
	reviewService = service.NewReviewService(reviewRepo, tutorshipRepo, professorRepo, rankingQueue, validate, logr)
	mediaService := service.NewMediaService(mediaRepo, localStore, signer, cfg.Media, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Users:        handler.NewUserHandler(userService),
		Professors:   handler.NewProfessorHandler(professorService, reviewService),
		Subjects:     handler.NewSubjectHandler(subjectService),
		Availability: handler.NewAvailabilityHandler(availabilityService, slotService),
		Schedule:     handler.NewScheduleHandler(scheduleService),
		Tutorships:   handler.NewTutorshipHandler(tutorshipService),
		Payments:     handler.NewPaymentHandler(paymentService),
		Reviews:      handler.NewReviewHandler(reviewService),
		Media:        handler.NewMediaHandler(mediaService),
		Metrics:      handler.NewMetricsHandler(metricsService, db, redisClient),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, authService, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
