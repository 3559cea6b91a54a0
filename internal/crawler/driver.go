// Package crawler walks the credit API page by page: size the crawl
// from page 1, then fetch every page in strict order, retrying with a
// captcha refresh and finally skipping pages that will not come.
package crawler

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/credit-crawler/internal/model"
	"github.com/sells-group/credit-crawler/internal/normalize"
)

// PageFetcher is what the driver needs from a Fetcher.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*PageDocument, error)
}

// DriverOptions configures a crawl.
type DriverOptions struct {
	PageSize int
	// PageRetryMax is attempts per page, including the first.
	PageRetryMax int
	// RefreshOnPageFailure refreshes the captcha between attempts of
	// the same page. The working assumption is that a failed page means
	// a rejected token; when that is wrong it costs one extra challenge
	// request per retry.
	RefreshOnPageFailure bool
	// LimitPages caps the crawl for dry runs; 0 means every page.
	LimitPages int
}

// Driver is the pagination state machine. Pages resolve strictly in
// order: page p+1 is never touched before page p succeeded or was
// given up on.
type Driver struct {
	fetcher PageFetcher
	tokens  TokenSource
	norm    *normalize.Normalizer
	opts    DriverOptions
}

// NewDriver builds a Driver.
func NewDriver(fetcher PageFetcher, tokens TokenSource, norm *normalize.Normalizer, opts DriverOptions) *Driver {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.PageRetryMax <= 0 {
		opts.PageRetryMax = 3
	}
	return &Driver{fetcher: fetcher, tokens: tokens, norm: norm, opts: opts}
}

// fatalError marks a failure that must abort the whole run rather than
// skip a page (captcha exhaustion, cancelled context).
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Run executes the full crawl and returns the accumulated profiles plus
// run statistics. The stats are meaningful even on error.
func (d *Driver) Run(ctx context.Context) ([]model.CompanyCreditProfile, model.RunStats, error) {
	var stats model.RunStats

	// START: a token must be live before the first page request.
	if _, ok := d.tokens.Current(); !ok {
		if _, err := d.tokens.Refresh(ctx); err != nil {
			return nil, stats, eris.Wrap(err, "crawler: initial captcha")
		}
		stats.CaptchaRefreshes++
	}

	// SIZING: page 1 decides how far the crawl goes.
	first, err := d.fetchWithRetry(ctx, 1, &stats)
	if err != nil {
		var fe *fatalError
		if errors.As(err, &fe) {
			err = fe.err
		}
		return nil, stats, eris.Wrap(err, "crawler: sizing fetch")
	}

	totalPages := (first.Total + d.opts.PageSize - 1) / d.opts.PageSize
	if d.opts.LimitPages > 0 && totalPages > d.opts.LimitPages {
		totalPages = d.opts.LimitPages
	}
	stats.PagesTotal = totalPages
	zap.L().Info("crawl sized",
		zap.Int("total_records", first.Total),
		zap.Int("total_pages", totalPages),
	)

	// ITERATING: strict page order, skip-on-exhaustion.
	var profiles []model.CompanyCreditProfile
	for page := 1; page <= totalPages; page++ {
		if ctx.Err() != nil {
			return profiles, stats, eris.Wrap(ctx.Err(), "crawler: cancelled")
		}

		doc, err := d.fetchWithRetry(ctx, page, &stats)
		if err != nil {
			var fe *fatalError
			if errors.As(err, &fe) {
				return profiles, stats, eris.Wrapf(fe.err, "crawler: page %d", page)
			}
			stats.PagesSkipped++
			zap.L().Error("page skipped after exhausting retries",
				zap.Int("page", page),
				zap.Int("attempts", d.opts.PageRetryMax),
				zap.Error(err),
			)
			continue
		}

		stats.PagesFetched++
		for _, raw := range doc.Data {
			res := d.norm.Normalize(raw)
			stats.FieldsCoerced += res.Coercions
			if res.Dropped {
				stats.RecordsDropped++
				continue
			}
			stats.RecordsKept++
			profiles = append(profiles, *res.Profile)
		}
	}

	// DONE.
	zap.L().Info("crawl finished",
		zap.Int("pages_fetched", stats.PagesFetched),
		zap.Int("pages_skipped", stats.PagesSkipped),
		zap.Int("records_kept", stats.RecordsKept),
		zap.Int("records_dropped", stats.RecordsDropped),
		zap.Int("fields_coerced", stats.FieldsCoerced),
	)
	return profiles, stats, nil
}

// fetchWithRetry attempts one page up to PageRetryMax times, refreshing
// the captcha between attempts when configured. A refresh that itself
// fails is fatal: without a token no later page can succeed either.
func (d *Driver) fetchWithRetry(ctx context.Context, page int, stats *model.RunStats) (*PageDocument, error) {
	var lastErr error
	for attempt := 1; attempt <= d.opts.PageRetryMax; attempt++ {
		doc, err := d.fetcher.FetchPage(ctx, page)
		if err == nil {
			return doc, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &fatalError{err: lastErr}
		}
		if attempt == d.opts.PageRetryMax {
			break
		}

		zap.L().Warn("page fetch failed",
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if d.opts.RefreshOnPageFailure {
			if _, err := d.tokens.Refresh(ctx); err != nil {
				return nil, &fatalError{err: err}
			}
			stats.CaptchaRefreshes++
		}
	}
	return nil, lastErr
}
