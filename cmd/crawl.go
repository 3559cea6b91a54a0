package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/credit-crawler/internal/captcha"
	"github.com/sells-group/credit-crawler/internal/codec"
	"github.com/sells-group/credit-crawler/internal/crawler"
	"github.com/sells-group/credit-crawler/internal/model"
	"github.com/sells-group/credit-crawler/internal/normalize"
	"github.com/sells-group/credit-crawler/internal/report"
	"github.com/sells-group/credit-crawler/internal/store"
	"github.com/sells-group/credit-crawler/internal/transport"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the full harvest: fetch, decrypt, normalize, export",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().Bool("dry-run", false, "crawl without writing a report or run-history entry")
	crawlCmd.Flags().Int("limit-pages", 0, "cap the number of pages fetched (0 = all)")
	crawlCmd.Flags().String("sheets", "", "YAML file defining the report sheet layout")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limitPages, _ := cmd.Flags().GetInt("limit-pages")

	sheets := cfg.Export.Sheets
	if path, _ := cmd.Flags().GetString("sheets"); path != "" {
		var err error
		if sheets, err = report.LoadSheetsFile(path); err != nil {
			return err
		}
	}

	driver, err := buildDriver(limitPages)
	if err != nil {
		return err
	}

	if dryRun {
		profiles, stats, err := driver.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "crawl")
		}
		printSummary(os.Stdout, stats, len(profiles), "(dry run, nothing written)")
		return nil
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(ctx)
	if err != nil {
		return eris.Wrap(err, "crawl: create run")
	}
	zap.L().Info("crawl run started", zap.String("run_id", run.ID))

	profiles, stats, err := driver.Run(ctx)
	if err != nil {
		if ferr := st.FailRun(ctx, run.ID, stats, err.Error()); ferr != nil {
			zap.L().Error("record run failure", zap.Error(ferr))
		}
		return eris.Wrap(err, "crawl")
	}

	exporter := report.NewExporter(cfg.Export.Dir, sheets)
	path, err := exporter.Export(profiles)
	if err != nil {
		if ferr := st.FailRun(ctx, run.ID, stats, err.Error()); ferr != nil {
			zap.L().Error("record run failure", zap.Error(ferr))
		}
		return eris.Wrap(err, "crawl: export")
	}

	if err := st.CompleteRun(ctx, run.ID, stats, path); err != nil {
		return eris.Wrap(err, "crawl: record run")
	}

	printSummary(os.Stdout, stats, len(profiles), path)
	return nil
}

// buildDriver wires the pipeline out of configuration.
func buildDriver(limitPages int) (*crawler.Driver, error) {
	cdc, err := codec.New(codec.Config{Key: cfg.Crypto.AESKey, IV: cfg.Crypto.AESIV})
	if err != nil {
		return nil, eris.Wrap(err, "crawl: cipher config")
	}

	client := transport.New(transport.Options{
		Timeout:    time.Duration(cfg.Transport.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Transport.MaxRetries,
		UserAgent:  cfg.Transport.UserAgent,
		Referer:    cfg.Transport.Referer,
		RatePerSec: cfg.Transport.RatePerSec,
	})

	ctrl := captcha.New(client, cdc, cfg.Crawl.BaseURL, cfg.Captcha.MaxAttempts)
	fetcher := crawler.NewFetcher(client, cdc, ctrl, cfg.Crawl.BaseURL, cfg.Crawl.NameFilter, cfg.Crawl.PageSize)

	return crawler.NewDriver(fetcher, ctrl, normalize.New(cfg.Crawl.BaselineScore), crawler.DriverOptions{
		PageSize:             cfg.Crawl.PageSize,
		PageRetryMax:         cfg.Crawl.PageRetryMax,
		RefreshOnPageFailure: cfg.Crawl.RefreshOnPageFailure,
		LimitPages:           limitPages,
	}), nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open run store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate run store")
	}
	return st, nil
}

func printSummary(w io.Writer, stats model.RunStats, profileCount int, outcome string) {
	fmt.Fprintf(w, "pages: %d fetched, %d skipped of %d\n", stats.PagesFetched, stats.PagesSkipped, stats.PagesTotal)
	fmt.Fprintf(w, "records: %d kept, %d dropped, %d fields coerced\n", stats.RecordsKept, stats.RecordsDropped, stats.FieldsCoerced)
	fmt.Fprintf(w, "profiles: %d\n", profileCount)
	fmt.Fprintf(w, "report: %s\n", outcome)
}
