// Package main is the batch report CLI: it loads the dataset once and prints
// one metrics line per partner.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/partnerpulse/engine/internal/cache"
	"github.com/partnerpulse/engine/internal/config"
	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/memo"
	"github.com/partnerpulse/engine/internal/report"
	"github.com/partnerpulse/engine/internal/snapshot"
	"github.com/partnerpulse/engine/internal/source"
)

func main() {
	partnerFilter := flag.String("partner", "", "Limit the report to one partner id")
	mysqlDSN := flag.String("dsn", "", "MySQL DSN (overrides MYSQL_DSN)")
	datasetPath := flag.String("dataset", "", "Static dataset JSON path (overrides DATASET_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *mysqlDSN != "" {
		cfg.MySQLDSN = *mysqlDSN
	}
	if *datasetPath != "" {
		cfg.MySQLDSN = ""
		cfg.APIBaseURL = ""
		cfg.DatasetPath = *datasetPath
	}

	src, closeSource, err := buildSource(cfg)
	if err != nil {
		slog.Error("failed to build dataset source", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	// Batch runs always fetch fresh data; the snapshot tier stays in memory.
	store := cache.New(src, snapshot.NewMemory(), cfg.FreshWindow, cfg.StaleTolerance)
	svc := report.New(store, memo.New(cfg.MemoExpiry))

	ctx := context.Background()
	ds, err := svc.Load(ctx)
	if err != nil {
		slog.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		slog.Error("failed to compute summary", "error", err)
		os.Exit(1)
	}
	fmt.Printf("dataset ; partners=%d ; clients=%d ; trades=%d ; deposits=%d ; total_commission=%.2f ; total_deposits=%.2f\n",
		summary.Partners, summary.Clients, summary.Trades, summary.Deposits,
		summary.TotalCommission, summary.TotalDeposits)

	partners := ds.Partners
	if *partnerFilter != "" {
		p := ds.PartnerByID(*partnerFilter)
		if p == nil {
			slog.Error("unknown partner id", "partner_id", *partnerFilter)
			os.Exit(1)
		}
		partners = []dataset.Partner{*p}
	}

	bar := progressbar.Default(int64(len(partners)))
	for _, partner := range partners {
		m, err := svc.Metrics(ctx, partner.PartnerID)
		if err != nil {
			slog.Error("failed to compute metrics", "partner_id", partner.PartnerID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s ; %s ; tier=%s ; lt_clients=%d ; lt_deposits=%.2f ; lt_commissions=%.2f ; lt_volume=%d ; mtd_comm=%.2f ; mtd_volume=%d ; mtd_deposits=%.2f ; mtd_clients=%d\n",
			partner.PartnerID, m.PartnerName, m.PartnerTier,
			m.LTClients, m.LTDeposits, m.LTCommissions, m.LTVolume,
			m.MTDComm, m.MTDVolume, m.MTDDeposits, m.MTDClients)
		_ = bar.Add(1)
	}
}

// buildSource mirrors the server's source selection: MySQL, then REST, then
// the static document.
func buildSource(cfg *config.Config) (source.Source, func(), error) {
	switch {
	case cfg.MySQLDSN != "":
		src, err := source.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case cfg.APIBaseURL != "":
		return source.NewHTTP(cfg.APIBaseURL, cfg.HTTPTimeout), func() {}, nil
	default:
		return source.NewFile(cfg.DatasetPath), func() {}, nil
	}
}
