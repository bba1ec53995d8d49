package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/config"
	"krishidev/krishidev/controllers"
	mw "krishidev/krishidev/middlewares"
	"krishidev/krishidev/routes"
	"krishidev/krishidev/services/llm"
	"krishidev/krishidev/sources/psql"
	"krishidev/krishidev/sources/psql/dao"
	"krishidev/krishidev/sources/storage"
	"krishidev/krishidev/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.AppLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	chatDAO := dao.NewChatRecordDAO(db.DB)

	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		logging.AppLogger.Error("minio connection error", zap.Error(err))
		os.Exit(1)
	}

	filter, err := chat.NewFilter()
	if err != nil {
		logging.AppLogger.Error("filter rules error", zap.Error(err))
		os.Exit(1)
	}
	store := chat.NewStore(cfg.SessionMaxTurns, cfg.SessionMaxUsers)
	gemini := llm.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	manager := chat.NewManager(store, filter, gemini, cfg.GeminiTimeout)

	askCtrl := controllers.NewAskController(manager, chatDAO, minioClient)
	healthCtrl := controllers.NewHealthController()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.CORS)
	r.Use(mw.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/", routes.HealthRoutes(healthCtrl))
	r.Mount("/ask", routes.AskRoutes(askCtrl))
	r.Mount("/chats", routes.ChatsRoutes(askCtrl))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.AppLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.AppLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
