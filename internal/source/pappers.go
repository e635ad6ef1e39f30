package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/pkg/pappers"
)

// PappersSource pulls companies from the Pappers search API, walking every
// configured NAF code and department and fetching details per SIREN.
type PappersSource struct {
	client pappers.Client
	cfg    config.PappersConfig
}

// NewPappers creates the Pappers acquisition source.
func NewPappers(client pappers.Client, cfg config.PappersConfig) *PappersSource {
	return &PappersSource{client: client, cfg: cfg}
}

func (s *PappersSource) Name() string         { return "pappers" }
func (s *PappersSource) Label() string        { return "Pappers API" }
func (s *PappersSource) SupportsParams() bool { return true }
func (s *PappersSource) SupportsCancel() bool { return true }

// Run walks the configured NAF code x department grid. Progress advances per
// department; a quota error ends the run as a failure.
func (s *PappersSource) Run(ctx context.Context, params Params, report ReportFunc) error {
	log := zap.L().With(zap.String("source", s.Name()))

	minRevenue := s.cfg.MinRevenueEUR
	if params.MinRevenue != nil {
		minRevenue = *params.MinRevenue
	}

	// Targeted lookup: a single SIREN skips the grid walk entirely.
	if params.Siren != "" {
		report(Report{Progress: 10, Message: fmt.Sprintf("fetching %s", params.Siren)})
		rec, err := s.fetchDetail(ctx, params.Siren)
		if err != nil {
			return err
		}
		report(Report{Progress: 90, Message: "record fetched", Records: []model.CompanyRecord{*rec}})
		return nil
	}

	total := len(s.cfg.NAFCodes) * len(s.cfg.Departments)
	done := 0

	for _, naf := range s.cfg.NAFCodes {
		for _, dept := range s.cfg.Departments {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "pappers source: cancelled")
			}

			msg := fmt.Sprintf("searching NAF %s, department %s", naf, dept)
			report(Report{Progress: percent(done, total), Message: msg})
			log.Info("pappers source: searching",
				zap.String("naf", naf),
				zap.String("department", dept),
			)

			if err := s.walkDepartment(ctx, naf, dept, minRevenue, done, total, report); err != nil {
				if pappers.IsQuota(err) {
					return eris.Wrap(err, "pappers source: API quota reached")
				}
				// A failed department does not abort the whole run.
				log.Warn("pappers source: department failed",
					zap.String("naf", naf),
					zap.String("department", dept),
					zap.Error(err),
				)
			}
			done++
		}
	}

	report(Report{Progress: 100, Message: "search complete"})
	return nil
}

func (s *PappersSource) walkDepartment(ctx context.Context, naf, dept string, minRevenue float64, done, total int, report ReportFunc) error {
	page := 1
	for {
		resp, err := s.client.Search(ctx, pappers.SearchRequest{
			NAFCode:    naf,
			Department: dept,
			Page:       page,
			PerPage:    s.cfg.ResultsPerPage,
			MinRevenue: minRevenue,
			ActiveOnly: true,
		})
		if err != nil {
			return err
		}

		var records []model.CompanyRecord
		for _, result := range resp.Results {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "pappers source: cancelled")
			}
			if !model.ValidSiren(result.Siren) {
				continue
			}
			if outOfBand(result.Revenue, minRevenue, s.cfg.MaxRevenueEUR) {
				continue
			}

			rec, err := s.fetchDetail(ctx, result.Siren)
			if err != nil {
				if pappers.IsQuota(err) {
					return err
				}
				// Fall back to the summary row when the detail call fails.
				rec = recordFromResult(result)
			}
			records = append(records, *rec)
		}

		if len(records) > 0 {
			report(Report{
				Progress: percent(done, total),
				Message:  fmt.Sprintf("department %s page %d: %d candidates", dept, page, len(records)),
				Records:  records,
			})
		}

		if !resp.HasMore() {
			return nil
		}
		page++
	}
}

func (s *PappersSource) fetchDetail(ctx context.Context, siren string) (*model.CompanyRecord, error) {
	detail, err := s.client.Company(ctx, siren)
	if err != nil {
		return nil, err
	}

	rec := recordFromResult(detail.CompanyResult)
	rec.Email = detail.Email
	rec.Phone = detail.Phone
	rec.VATNumber = detail.VATNumber
	rec.ShareCapital = detail.ShareCapital
	for _, rep := range detail.Representatives {
		name := rep.FirstName
		if name != "" && rep.LastName != "" {
			name += " "
		}
		name += rep.LastName
		rec.Officers = append(rec.Officers, model.Officer{Name: name, Role: rep.Role})
	}
	if len(rec.Officers) > 0 {
		rec.PrincipalOfficer = rec.Officers[0].Name
		if role := rec.Officers[0].Role; role != "" {
			rec.PrincipalOfficer += " (" + role + ")"
		}
	}
	return rec, nil
}

func recordFromResult(r pappers.CompanyResult) *model.CompanyRecord {
	now := time.Now().UTC()
	rec := &model.CompanyRecord{
		Siren:         r.Siren,
		SiretSiege:    r.SiretSiege,
		Name:          r.Name,
		LegalForm:     r.LegalForm,
		NAFCode:       r.NAFCode,
		NAFLabel:      r.NAFLabel,
		Revenue:       r.Revenue,
		NetResult:     r.NetResult,
		Headcount:     r.Headcount,
		Address:       formatAddress(r),
		SourceLink:    "https://www.pappers.fr/entreprise/" + r.Siren,
		LastScrapedAt: &now,
	}
	if t, err := time.Parse("2006-01-02", r.CreationDate); err == nil {
		rec.Founded = &t
	}
	return rec
}

func formatAddress(r pappers.CompanyResult) string {
	switch {
	case r.AddressLine1 != "" && r.PostalCode != "" && r.City != "":
		return r.AddressLine1 + ", " + r.PostalCode + " " + r.City
	case r.PostalCode != "" && r.City != "":
		return r.PostalCode + " " + r.City
	default:
		return r.AddressLine1
	}
}

func outOfBand(revenue *float64, min, max float64) bool {
	if revenue == nil {
		return false
	}
	if min > 0 && *revenue < min {
		return true
	}
	if max > 0 && *revenue > max {
		return true
	}
	return false
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	p := done * 100 / total
	if p > 99 {
		p = 99 // 100 is reserved for the terminal transition
	}
	return p
}
