package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/api"
	"github.com/satpay/walletd/internal/config"
	"github.com/satpay/walletd/internal/domain"
	"github.com/satpay/walletd/internal/gateway"
	"github.com/satpay/walletd/internal/gateway/providers"
	"github.com/satpay/walletd/internal/notify"
	"github.com/satpay/walletd/internal/service"
	"github.com/satpay/walletd/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	st, err := store.New(cfg.DBSource)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer st.Close()

	resolver := gateway.NewResolver(st, providers.Factory(), gateway.URLs{
		SuccessURL: cfg.BackendURL + "/webhooks/payu",
		FailureURL: cfg.BackendURL + "/webhooks/payu",
		ReturnURL:  cfg.FrontendURL + "/checkout/return?order_id={order_id}",
	}, cfg.Razorpay)

	mode := domain.KeyMode(cfg.PaymentMode)
	if mode != domain.ModeLive {
		mode = domain.ModeTest
	}

	checkout := service.NewCheckout(st, st, resolver, mode, logger)
	verifier := service.NewVerifier(st, st, st, resolver, st, logger)
	handler := api.NewHandler(st, checkout, verifier, cfg.JWTSecret, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notify.NewWorker(st, cfg.WebhookSigningSecret, logger).Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server exited")
}
