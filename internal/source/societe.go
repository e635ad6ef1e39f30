package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/internal/store"
	"github.com/Clerks303/Scraping/pkg/societe"
)

// SocieteSource scrapes company listings from societe.com department by
// department. Cancellation is honored at page boundaries.
type SocieteSource struct {
	client *societe.Client
	store  store.Store
	cfg    config.SocieteConfig
}

// NewSociete creates the societe.com acquisition source.
func NewSociete(client *societe.Client, st store.Store, cfg config.SocieteConfig) *SocieteSource {
	return &SocieteSource{client: client, store: st, cfg: cfg}
}

func (s *SocieteSource) Name() string         { return "societe" }
func (s *SocieteSource) Label() string        { return "Societe.com" }
func (s *SocieteSource) SupportsParams() bool { return false }
func (s *SocieteSource) SupportsCancel() bool { return true }

// Run walks the configured departments. A blocked department is skipped;
// the run only fails when every department was blocked.
func (s *SocieteSource) Run(ctx context.Context, _ Params, report ReportFunc) error {
	log := zap.L().With(zap.String("source", s.Name()))

	sirens, err := s.store.ListSirens(ctx)
	if err != nil {
		return eris.Wrap(err, "societe source: load known sirens")
	}
	known := make(map[string]struct{}, len(sirens))
	for _, siren := range sirens {
		known[siren] = struct{}{}
	}

	blockedCount := 0
	for i, dept := range s.cfg.Departments {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "societe source: cancelled")
		}

		report(Report{
			Progress: percent(i, len(s.cfg.Departments)),
			Message:  fmt.Sprintf("scraping department %s", dept),
		})

		err := s.walkDepartment(ctx, dept, i, known, report)
		if eris.Is(err, societe.ErrBlocked) {
			blockedCount++
			log.Warn("societe source: department blocked", zap.String("department", dept))
			continue
		}
		if err != nil {
			return err
		}
	}

	if blockedCount == len(s.cfg.Departments) && blockedCount > 0 {
		return eris.New("societe source: blocked on every department")
	}

	report(Report{Progress: 100, Message: "scraping complete"})
	return nil
}

func (s *SocieteSource) walkDepartment(ctx context.Context, dept string, deptIndex int, known map[string]struct{}, report ReportFunc) error {
	for page := 1; page <= s.cfg.MaxPagesPerDept; page++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "societe source: cancelled")
		}

		result, err := s.client.SearchPage(ctx, s.cfg.NAFCode, dept, page)
		if err != nil {
			return err
		}

		var records []model.CompanyRecord
		for _, summary := range result.Companies {
			if !model.ValidSiren(summary.Siren) {
				continue
			}
			// Known companies are not re-scraped; the detail pages rarely change.
			if _, ok := known[summary.Siren]; ok {
				continue
			}
			known[summary.Siren] = struct{}{}

			rec := model.CompanyRecord{
				Siren:      summary.Siren,
				Name:       summary.Name,
				NAFCode:    s.cfg.NAFCode,
				SourceLink: "https://www.societe.com/" + summary.Slug,
			}

			// Detail pages carry legal form, address, capital, officer.
			if detail, err := s.client.CompanyPage(ctx, summary.Slug); err == nil {
				applyDetail(&rec, detail)
			} else if eris.Is(err, societe.ErrBlocked) {
				return err
			}

			now := time.Now().UTC()
			rec.LastScrapedAt = &now
			records = append(records, rec)

			if err := s.client.Delay(ctx); err != nil {
				return eris.Wrap(err, "societe source: cancelled")
			}
		}

		if len(records) > 0 {
			report(Report{
				Progress: percent(deptIndex, len(s.cfg.Departments)),
				Message:  fmt.Sprintf("department %s page %d: %d candidates", dept, page, len(records)),
				Records:  records,
			})
		}

		if !result.HasMore {
			return nil
		}
		if err := s.client.Delay(ctx); err != nil {
			return eris.Wrap(err, "societe source: cancelled")
		}
	}
	return nil
}

func applyDetail(rec *model.CompanyRecord, detail *societe.CompanyDetail) {
	if detail.Name != "" {
		rec.Name = detail.Name
	}
	rec.SiretSiege = detail.SiretSiege
	rec.LegalForm = detail.LegalForm
	rec.Address = detail.Address
	if detail.NAFCode != "" {
		rec.NAFCode = detail.NAFCode
	}
	rec.NAFLabel = detail.NAFLabel
	rec.ShareCapital = detail.ShareCapital
	rec.PrincipalOfficer = detail.Officer
}
