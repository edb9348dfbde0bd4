package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/mmdatafocus/shopify_budget/shopifysync"
	"github.com/sirupsen/logrus"
)

// Copies the GL-code product metafield into products.shopify_category.
// Meant to run as a scheduled job.
func main() {
	settings := config.LoadSettings()
	opts := shopifysync.OptionsFromSettings(settings)

	pageSize := flag.Int("page-size", opts.PageSize, "products per Admin API page (max 250)")
	timeout := flag.Duration("timeout", 30*time.Minute, "abort the sync after this long")
	metafield := flag.String("metafield", opts.Metafield, "product metafield holding the GL code, as namespace.key")
	flag.Parse()

	opts.PageSize = *pageSize
	opts.Metafield = *metafield

	logger := config.NewLogger(settings.LogLvl)
	if settings.ShopifyShopDomain == "" || settings.ShopifyAdminToken == "" {
		logger.WithFields(logrus.Fields{"field": "settings"}).Fatal("SHOPIFY_SHOP_DOMAIN and SHOPIFY_ADMIN_TOKEN are required")
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithTimeout(sigCtx, *timeout)
	defer cancel()

	db := config.ConnectDatabaseWithRetry(settings)
	defer config.CloseDatabase(db)

	// drop cached reports once categories move; without redis this is a no-op
	rdb := config.ConnectRedisWithRetry(ctx, settings.RedisAddress, 3)
	defer rdb.Close()
	store := reports.NewStore(db)
	reporter := reports.NewReporter(store, store, rdb, reports.ReporterConfig{}, logger, nil)

	syncer, err := shopifysync.NewCategorySyncer(db, opts, reporter, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "syncer"}).Fatal(err.Error())
	}
	defer syncer.Close()

	stats, err := syncer.Run(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":   "sync",
			"scanned": stats.Scanned,
			"updated": stats.Updated,
		}).Error("category sync failed: " + err.Error())
		os.Exit(1)
	}
}
