// Package main runs the survey platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/formloom/backend/config"
	"github.com/formloom/backend/internal/auth"
	"github.com/formloom/backend/internal/exports"
	"github.com/formloom/backend/internal/middleware"
	"github.com/formloom/backend/internal/options"
	"github.com/formloom/backend/internal/pages"
	"github.com/formloom/backend/internal/questions"
	"github.com/formloom/backend/internal/realtime"
	"github.com/formloom/backend/internal/responses"
	"github.com/formloom/backend/internal/sharelinks"
	"github.com/formloom/backend/internal/surveys"
	"github.com/formloom/backend/internal/worker"
	"github.com/formloom/backend/pkg/database"
	"github.com/formloom/backend/pkg/queue"
	"github.com/formloom/backend/pkg/redis"
	"github.com/formloom/backend/pkg/response"
	"github.com/formloom/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			CoversBucket:         cfg.AWS.CoversBucket,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Surveys
	surveyRepo := surveys.NewRepository(pool)
	surveyHandler := surveys.NewHandler(surveyRepo, s3Client, logger)

	// Pages / questions / options
	pageRepo := pages.NewRepository(pool)
	pageHandler := pages.NewHandler(pageRepo)
	questionRepo := questions.NewRepository(pool)
	questionHandler := questions.NewHandler(questionRepo)
	optionRepo := options.NewRepository(pool)
	optionHandler := options.NewHandler(optionRepo)

	// Responses and summaries
	responseRepo := responses.NewRepository(pool)
	responseHandler := responses.NewHandler(responseRepo, surveyRepo, hub, logger)

	// Share links
	shareRepo := sharelinks.NewRepository(pool)
	shareHandler := sharelinks.NewHandler(shareRepo, surveyRepo, responseHandler, cfg.Server.PublicBaseURL, logger)

	// Exports (CSV via background worker)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	exportRepo := exports.NewRepository(pool)
	exportHandler := exports.NewHandler(exportRepo, jobQueue, s3Client, logger)
	exportProcessor := worker.NewExportProcessor(exportRepo, surveyRepo, responseRepo, s3Client, jobQueue, logger)

	jwtValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}
	wsAuthorize := func(c *gin.Context, surveyID, userID uuid.UUID) (bool, error) {
		s, err := surveyRepo.GetByID(c.Request.Context(), surveyID)
		if err != nil {
			return false, err
		}
		return s.UserID == userID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.GET("/me", middleware.JWT(jwtService), authHandler.Me)
	}

	// Public participant surface: share links and public-survey submit.
	// OptionalJWT attributes submissions to logged-in participants.
	router.GET("/s/:slug", shareHandler.Resolve)
	router.POST("/s/:slug/responses", middleware.OptionalJWT(jwtService), shareHandler.Submit)
	router.POST("/surveys/:id/responses", middleware.OptionalJWT(jwtService), responseHandler.Submit)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/surveys", surveyHandler.List)
		api.POST("/surveys", surveyHandler.Create)

		// Everything under one survey requires ownership
		owner := api.Group("/surveys/:id", surveys.RequireOwner(surveyRepo))
		{
			owner.GET("", surveyHandler.Get)
			owner.PATCH("", surveyHandler.Update)
			owner.DELETE("", surveyHandler.Delete)
			owner.GET("/detail", surveyHandler.Detail)
			owner.POST("/clone", surveyHandler.Clone)
			owner.POST("/cover", surveyHandler.UploadCover)

			owner.POST("/pages", pageHandler.Create)
			owner.PUT("/pages/reorder", pageHandler.Reorder)
			owner.PATCH("/pages/:pageId", pageHandler.Update)
			owner.DELETE("/pages/:pageId", pageHandler.Delete)

			owner.POST("/pages/:pageId/questions", questionHandler.Create)
			owner.PUT("/pages/:pageId/questions/reorder", questionHandler.Reorder)
			owner.PATCH("/questions/:questionId", questionHandler.Update)
			owner.DELETE("/questions/:questionId", questionHandler.Delete)

			owner.POST("/questions/:questionId/options", optionHandler.Create)
			owner.PUT("/questions/:questionId/options/reorder", optionHandler.Reorder)
			owner.PATCH("/options/:optionId", optionHandler.Update)
			owner.DELETE("/options/:optionId", optionHandler.Delete)

			owner.GET("/responses", responseHandler.List)
			owner.GET("/summary", responseHandler.Summary)

			owner.POST("/share", shareHandler.Create)
			owner.GET("/share", shareHandler.List)
			owner.DELETE("/share/:linkId", shareHandler.Delete)

			owner.POST("/exports", exportHandler.Create)
			owner.GET("/exports", exportHandler.List)
			owner.GET("/exports/:exportId/download", exportHandler.DownloadURL)
		}
	}

	// WebSocket live response feed (token in query; no Authorization header)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, wsAuthorize))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process export worker; cmd/worker runs the same processor standalone
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		go exportProcessor.Run(workerCtx)
		logger.Info("export worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
