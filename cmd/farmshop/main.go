package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/consent"
	"akkervarken.be/farmshop/internal/content"
	"akkervarken.be/farmshop/internal/handlers"
	"akkervarken.be/farmshop/internal/orders"
	"akkervarken.be/farmshop/internal/platform/config"
	"akkervarken.be/farmshop/internal/platform/observability"
	"akkervarken.be/farmshop/internal/pos"
	"akkervarken.be/farmshop/internal/shop"
)

func main() {
	var envFile string
	flag.StringVar(&envFile, "env", ".env", "path to .env overrides")
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	cat, err := catalog.LoadFile(cfg.Content.CatalogPath)
	if err != nil {
		logger.Fatal("catalog load failed", zap.Error(err))
	}
	site, err := content.LoadFile(cfg.Content.SitePath)
	if err != nil {
		logger.Fatal("site content load failed", zap.Error(err))
	}

	repo, err := orders.Open(cfg.Orders.DatabasePath)
	if err != nil {
		logger.Fatal("order archive open failed", zap.Error(err))
	}
	defer repo.Close()

	collector := analytics.NewCollector(
		cfg.Analytics.MeasurementID,
		cfg.Analytics.APISecret,
		uuid.NewString(), // fallback client id for events outside a session
		logger,
	)
	tracker := analytics.NewTracker(collector, consent.Granted)

	h := handlers.New(handlers.Deps{
		Logger:  logger,
		Catalog: cat,
		Site:    site,
		Tracker: tracker,
		Orders:  repo,
		Payment: pos.Payment{
			IBAN:        cfg.Payment.IBAN,
			BIC:         cfg.Payment.BIC,
			Beneficiary: cfg.Payment.Beneficiary,
			Remittance:  cfg.Payment.Remittance,
		},
		Contact: shop.Contact{Email: cfg.Shop.Email, Phone: cfg.Shop.Phone},
		Admin: handlers.AdminCredentials{
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("farmshop listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
		collector.Flush(ctx)
	}
}
