// Command replay re-ingests historical Stripe charges that never made it
// into the CRM, typically after a webhook outage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/impactupgrade/nucleus-engine-sub002/pkg/config"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/crm/memory"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/donation"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/donor"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/engine"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/gateway/stripepayment"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/money"
	"github.com/impactupgrade/nucleus-engine-sub002/pkg/replay"
)

func main() {
	var (
		fromFlag = flag.String("from", "", "start of the replay window (YYYY-MM-DD)")
		toFlag   = flag.String("to", "", "end of the replay window (YYYY-MM-DD), defaults to now")
		dryRun   = flag.Bool("dry-run", true, "report missing charges without re-ingesting them")
		envFile  = flag.String("env", "", "path to a .env file")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *fromFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -from YYYY-MM-DD [-to YYYY-MM-DD] [-dry-run=false]")
		os.Exit(2)
	}
	from, err := time.Parse("2006-01-02", *fromFlag)
	if err != nil {
		logger.Error("invalid -from date", "error", err)
		os.Exit(2)
	}
	to := time.Now()
	if *toFlag != "" {
		if to, err = time.Parse("2006-01-02", *toFlag); err != nil {
			logger.Error("invalid -to date", "error", err)
			os.Exit(2)
		}
		to = to.Add(24*time.Hour - time.Second)
	}

	cfg, err := config.LoadAppConfig(logger, *envFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	base := money.Normalize(cfg.BaseCurrency)
	if !base.IsValid() {
		logger.Error("invalid base currency", "base_currency", cfg.BaseCurrency)
		os.Exit(1)
	}

	// The in-memory store stands in for a CRM connection here; a real run
	// wires the org's CRM client instead.
	store := memory.New()
	eng := engine.New(
		donor.NewService(store, logger),
		donation.NewService(store, logger),
		logger,
	)
	client := stripepayment.NewClient(cfg.Stripe.ApiKey, logger)

	r := replay.New(client, store, eng, base, *dryRun, logger)
	report, err := r.Replay(context.Background(), from, to)
	if err != nil {
		logger.Error("replay failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("checked %d charges: %d missing, %d replayed\n",
		report.Checked, report.Missing, report.Replayed)
	for _, id := range report.MissingIDs {
		fmt.Println("  missing:", id)
	}
}
