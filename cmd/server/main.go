package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	catalogapp "github.com/dominus-shop/order-engine/internal/catalog/app"
	catalogpg "github.com/dominus-shop/order-engine/internal/catalog/infra/postgres"
	orderapp "github.com/dominus-shop/order-engine/internal/order/app"
	orderpg "github.com/dominus-shop/order-engine/internal/order/infra/postgres"
	"github.com/dominus-shop/order-engine/internal/payment/razorpay"
	"github.com/dominus-shop/order-engine/internal/rest"
	shippingpg "github.com/dominus-shop/order-engine/internal/shipping/postgres"
	"github.com/dominus-shop/order-engine/pkg/config"
	"github.com/dominus-shop/order-engine/pkg/logger"
	"github.com/dominus-shop/order-engine/pkg/metrics"
	"github.com/dominus-shop/order-engine/pkg/postgres"
	"github.com/dominus-shop/order-engine/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "order-engine",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database unavailable", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()

	gateway := razorpay.NewClient(razorpay.Config{
		Key:     cfg.RazorpayKey,
		Secret:  cfg.RazorpaySecret,
		BaseURL: cfg.RazorpayBaseURL,
	})

	orderRepo := orderpg.NewOrderRepo(db)
	addressRepo := shippingpg.NewAddressRepo(db)
	productRepo := catalogpg.NewProductRepo(db)

	orderSvc := orderapp.NewService(orderRepo, addressRepo, gateway, gateway.Key(), log, m)
	catalogSvc := catalogapp.NewService(productRepo)

	reconciler := orderapp.NewReconciler(orderRepo, gateway, cfg.ReconcileInterval, cfg.ReconcileBatch, log, m)

	handler := rest.New(orderSvc, catalogSvc, log, m)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}
