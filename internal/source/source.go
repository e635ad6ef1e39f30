// Package source defines the acquisition sources and their registry.
// Each source pulls candidate company records from one external origin and
// reports progress through a callback until it returns its terminal outcome.
package source

import (
	"context"

	"github.com/Clerks303/Scraping/internal/model"
)

// Params are the optional knobs a caller may pass when starting a source.
type Params struct {
	MinRevenue *float64 `json:"min_revenue,omitempty"`
	MinScore   *float64 `json:"min_score,omitempty"`
	Siren      string   `json:"siren,omitempty"`
}

// Report is one incremental progress event from a running source.
// Progress is 0-100; Records are candidate companies ready for
// reconciliation.
type Report struct {
	Progress int
	Message  string
	Records  []model.CompanyRecord
}

// ReportFunc receives incremental reports. Implementations must be safe to
// call from the source's goroutine.
type ReportFunc func(Report)

// Source is one external acquisition origin. Run emits any number of
// reports and returns exactly once: nil for success, an error for failure.
// Sources that declare cancellation support must observe ctx at their next
// checkpoint (page, record, or batch boundary).
type Source interface {
	Name() string
	Label() string
	SupportsParams() bool
	SupportsCancel() bool
	Run(ctx context.Context, params Params, report ReportFunc) error
}

// Info is the read-only description of a source exposed to callers.
type Info struct {
	Name           string `json:"name"`
	Label          string `json:"label"`
	SupportsParams bool   `json:"supports_params"`
	SupportsCancel bool   `json:"supports_cancel"`
}

// Describe builds the Info for a source.
func Describe(s Source) Info {
	return Info{
		Name:           s.Name(),
		Label:          s.Label(),
		SupportsParams: s.SupportsParams(),
		SupportsCancel: s.SupportsCancel(),
	}
}
