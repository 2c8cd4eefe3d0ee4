package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tutordesk/internal/audit"
	"tutordesk/internal/auth"
	"tutordesk/internal/config"
	"tutordesk/internal/database"
	"tutordesk/internal/directory"
	"tutordesk/internal/history"
	"tutordesk/internal/httpapi"
	"tutordesk/internal/session"
	"tutordesk/internal/telephony"
	"tutordesk/pkg/logger"
	"tutordesk/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := database.Open(rootCtx, cfg.PostgresDSN(), log)
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	directorySvc := directory.NewService(directory.NewPostgresRepo(db.DB), cfg.App.DefaultRegion)
	historySvc := history.NewService(history.NewPostgresRepo(db.DB))
	auditSvc := audit.NewService(audit.NewPostgresRepo(db.DB), log)

	// A broken bridge configuration disables calling but the roster and
	// history surfaces keep serving.
	var sessions *session.Manager
	bridge, twilioBridge, err := buildBridge(cfg.Bridge)
	if err != nil {
		log.Error("telephony bridge unavailable, calling disabled", "err", err)
		sessions = session.NewManager(nil, nil)
	} else {
		log.Info("telephony bridge ready", "provider", bridge.Name())
		workflow := &session.Workflow{
			Bridge:       bridge,
			Recorder:     &telephony.MemoryRecorder{},
			History:      historySvc,
			Log:          log,
			CallerNumber: cfg.Bridge.CallerNumber,
			Record:       cfg.Bridge.RecordCalls,
		}
		sessions = session.NewManager(workflow, &session.RedisLocker{Client: rdb})
	}

	h := httpapi.Handlers{
		Auth:      authManager,
		Directory: directorySvc,
		History:   historySvc,
		Sessions:  sessions,
		Audit:     auditSvc,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, twilioBridge)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// buildBridge selects the telephony provider from configuration. The
// twilio bridge is returned separately so its status webhook can be
// routed.
func buildBridge(cfg config.BridgeConfig) (telephony.Bridge, *telephony.TwilioBridge, error) {
	switch cfg.Provider {
	case config.BridgeProviderTwilio:
		if cfg.CallerNumber == "" {
			return nil, nil, errors.New("BRIDGE_CALLER_NUMBER is not set")
		}
		if cfg.StatusCallbackURL == "" {
			return nil, nil, errors.New("BRIDGE_STATUS_CALLBACK_URL is not set")
		}
		b, err := telephony.NewTwilioBridge(telephony.TwilioOptions{
			AccountSID:        cfg.AccountSID,
			AuthToken:         cfg.AuthToken,
			StatusCallbackURL: cfg.StatusCallbackURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	default:
		return telephony.NewSimulatedBridge(telephony.SimulatedConfig{}), nil, nil
	}
}
