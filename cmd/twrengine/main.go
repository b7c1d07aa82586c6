// Command twrengine computes time-weighted return series for one or more
// brokerage accounts and prints them as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantfold/twrengine/internal/clients/brokerage"
	"github.com/quantfold/twrengine/internal/common"
	"github.com/quantfold/twrengine/internal/interfaces"
	"github.com/quantfold/twrengine/internal/models"
	"github.com/quantfold/twrengine/internal/services/returns"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	var (
		configPath  = flag.String("config", os.Getenv("TWR_CONFIG"), "path to TOML config file")
		accountsArg = flag.String("accounts", "", "comma-separated account ids (default: accounts from config)")
		fromArg     = flag.String("from", "", "start date, YYYY-MM-DD (default: 90 days ago)")
		toArg       = flag.String("to", "", "end date, YYYY-MM-DD (default: today)")
		forwardFill = flag.Bool("forward-fill", false, "carry last known balances for accounts missing a daily snapshot")
		timeout     = flag.Duration("timeout", 60*time.Second, "overall computation timeout")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(cfg.Logging.Level)

	accounts := cfg.Accounts
	if *accountsArg != "" {
		accounts = splitAccounts(*accountsArg)
	}
	if len(accounts) == 0 {
		fmt.Fprintln(os.Stderr, "No accounts configured; pass -accounts or set accounts in config")
		os.Exit(1)
	}

	rng, err := parseRange(*fromArg, *toArg, cfg.Engine.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid date range: %v\n", err)
		os.Exit(1)
	}

	client := brokerage.NewClient(
		cfg.Brokerage.APIKey,
		cfg.Brokerage.APISecret,
		brokerage.WithBaseURL(cfg.Brokerage.BaseURL),
		brokerage.WithRateLimit(cfg.Brokerage.RateLimit),
		brokerage.WithTimeout(cfg.Brokerage.GetTimeout()),
		brokerage.WithLogger(logger.Component("brokerage")),
	)

	svc := returns.NewService(client, client, client, &cfg.Engine, logger.Component("returns"))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var series []models.TWRPoint
	if len(accounts) == 1 {
		series, err = svc.AccountSeries(ctx, accounts[0], rng)
	} else {
		opts := interfaces.AggregateOptions{ForwardFill: *forwardFill}
		series, err = svc.ComputeAggregateTWR(ctx, accounts, rng, opts)

		var partial *models.PartialFetchError
		if errors.As(err, &partial) {
			logger.Warn().
				Strs("failed", partial.FailedAccounts()).
				Msg("Aggregate computed from partial data")
			err = nil
		}
		if err == nil {
			series = svc.SynthesizeToday(ctx, accounts, series, rng, interfaces.TodayDamped)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Computation failed: %v\n", err)
		os.Exit(1)
	}

	series = svc.ClampAndRebase(series, rng)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(series); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

func splitAccounts(arg string) []string {
	parts := strings.Split(arg, ",")
	accounts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			accounts = append(accounts, p)
		}
	}
	return accounts
}

func parseRange(from, to string, loc *time.Location) (models.DateRange, error) {
	now := time.Now().In(loc)

	end := now
	if to != "" {
		t, err := time.ParseInLocation(models.DayFormat, to, loc)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("bad -to date %q: %w", to, err)
		}
		end = t
	}

	start := end.AddDate(0, 0, -90)
	if from != "" {
		t, err := time.ParseInLocation(models.DayFormat, from, loc)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("bad -from date %q: %w", from, err)
		}
		start = t
	}

	if models.Day(end).Before(models.Day(start)) {
		return models.DateRange{}, fmt.Errorf("end %s precedes start %s", end.Format(models.DayFormat), start.Format(models.DayFormat))
	}

	return models.DateRange{Start: start, End: end}, nil
}
