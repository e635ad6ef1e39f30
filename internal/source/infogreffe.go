package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/internal/store"
	"github.com/Clerks303/Scraping/pkg/infogreffe"
)

// InfogreffeSource enriches companies already in the dataset with their
// latest published financial filings. Candidates are selected by minimum
// revenue and score, or targeted by SIREN.
type InfogreffeSource struct {
	client infogreffe.Client
	store  store.Store
	cfg    config.InfogreffeConfig
}

// NewInfogreffe creates the Infogreffe enrichment source.
func NewInfogreffe(client infogreffe.Client, st store.Store, cfg config.InfogreffeConfig) *InfogreffeSource {
	return &InfogreffeSource{client: client, store: st, cfg: cfg}
}

func (s *InfogreffeSource) Name() string         { return "infogreffe" }
func (s *InfogreffeSource) Label() string        { return "Infogreffe enrichment" }
func (s *InfogreffeSource) SupportsParams() bool { return true }
func (s *InfogreffeSource) SupportsCancel() bool { return false }

// Run selects candidates from the dataset and fetches their filings with
// bounded concurrency, emitting enriched records in arrival order batches.
func (s *InfogreffeSource) Run(ctx context.Context, params Params, report ReportFunc) error {
	log := zap.L().With(zap.String("source", s.Name()))

	report(Report{Progress: 0, Message: "selecting candidates"})

	candidates, err := s.selectCandidates(ctx, params)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		report(Report{Progress: 100, Message: "no candidates matched"})
		return nil
	}
	log.Info("infogreffe source: candidates selected", zap.Int("count", len(candidates)))

	concurrency := s.cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range candidates {
		rec := candidates[i]
		g.Go(func() error {
			enriched, err := s.enrich(gctx, &rec)
			if err != nil {
				// A single failed lookup is logged, not fatal.
				log.Warn("infogreffe source: enrichment failed",
					zap.String("siren", rec.Siren),
					zap.Error(err),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			done++
			rep := Report{
				Progress: percent(done, len(candidates)),
				Message:  fmt.Sprintf("enriched %d/%d", done, len(candidates)),
			}
			if enriched != nil {
				rep.Records = []model.CompanyRecord{*enriched}
			}
			report(rep)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "infogreffe source: enrichment pass")
	}

	report(Report{Progress: 100, Message: fmt.Sprintf("enriched %d companies", done)})
	return nil
}

func (s *InfogreffeSource) selectCandidates(ctx context.Context, params Params) ([]model.CompanyRecord, error) {
	if params.Siren != "" {
		rec, err := s.store.Get(ctx, params.Siren)
		if eris.Is(err, store.ErrNotFound) {
			return nil, eris.Errorf("infogreffe source: siren %s not in dataset", params.Siren)
		}
		if err != nil {
			return nil, eris.Wrap(err, "infogreffe source: load target")
		}
		return []model.CompanyRecord{*rec}, nil
	}

	minRevenue := s.cfg.MinRevenueEUR
	if params.MinRevenue != nil {
		minRevenue = *params.MinRevenue
	}
	minScore := s.cfg.MinScore
	if params.MinScore != nil {
		minScore = *params.MinScore
	}

	// The candidate set is bounded by the dataset size; filtering in memory
	// keeps the Store interface free of query-building concerns.
	const pageSize = 500
	var out []model.CompanyRecord
	for offset := 0; ; offset += pageSize {
		page, err := s.store.List(ctx, pageSize, offset)
		if err != nil {
			return nil, eris.Wrap(err, "infogreffe source: list companies")
		}
		for _, rec := range page {
			if rec.Revenue == nil || *rec.Revenue < minRevenue {
				continue
			}
			// Unscored records always qualify; scored ones must clear the bar.
			if rec.ProspectionScore != nil && *rec.ProspectionScore < minScore {
				continue
			}
			out = append(out, rec)
		}
		if len(page) < pageSize {
			return out, nil
		}
	}
}

func (s *InfogreffeSource) enrich(ctx context.Context, rec *model.CompanyRecord) (*model.CompanyRecord, error) {
	filings, err := s.client.Filings(ctx, rec.Siren)
	if err != nil {
		return nil, err
	}
	latest := filings.Latest()
	if latest == nil {
		return nil, nil
	}

	out := *rec
	if latest.Revenue != nil {
		out.Revenue = latest.Revenue
	}
	if latest.NetResult != nil {
		out.NetResult = latest.NetResult
	}
	if latest.ShareCapital != nil {
		out.ShareCapital = latest.ShareCapital
	}
	if latest.Headcount != nil {
		out.Headcount = latest.Headcount
	}
	// Cleared so the reconciler rescores the record against the new financials.
	out.ProspectionScore = nil
	out.ScoreDetails = nil

	now := time.Now().UTC()
	out.LastScrapedAt = &now
	return &out, nil
}
