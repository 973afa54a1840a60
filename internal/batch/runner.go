package batch

import (
	"context"
	"errors"
	"fmt"

	"critical-duration/internal/config"
	"critical-duration/internal/log"

	"golang.org/x/sync/errgroup"
)

// ErrSitesFailed is wrapped by Run when at least one site could not be analyzed.
var ErrSitesFailed = errors.New("sites failed")

// Run analyzes sites with at most concurrency sites in flight. A failing site never
// stops the others; its report carries the error. Reports are returned in input order.
func (p *Pipeline) Run(ctx context.Context, sites []config.SiteConfig, concurrency int) ([]*SiteReport, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	reports := make([]*SiteReport, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, sc := range sites {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				reports[i] = &SiteReport{Site: sc.Site, Err: err}
				return err
			}
			rep, err := p.RunSite(gctx, sc)
			reports[i] = rep
			if err != nil {
				log.Errorw("site failed", "site", sc.Site, "error", err)
				return nil
			}
			log.Infow("site done", "site", sc.Site, "events", len(rep.Events), "stage_errors", len(rep.Errors), "elapsed", rep.Elapsed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return reports, fmt.Errorf("%d of %d: %w", failed, len(sites), ErrSitesFailed)
	}
	return reports, nil
}
