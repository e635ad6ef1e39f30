// Package infogreffe fetches financial filings from the Infogreffe open data API.
package infogreffe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://opendata-api.infogreffe.fr"

// Client defines the Infogreffe operations the enrichment source uses.
type Client interface {
	Filings(ctx context.Context, siren string) (*FilingsResponse, error)
}

// FilingsResponse holds the financial figures filed for a company.
type FilingsResponse struct {
	Siren   string   `json:"siren"`
	Name    string   `json:"denomination"`
	Filings []Filing `json:"bilans"`
}

// Filing is one fiscal year of published figures.
type Filing struct {
	FiscalYear   int      `json:"millesime"`
	CloseDate    string   `json:"date_cloture"`
	Revenue      *float64 `json:"ca"`
	NetResult    *float64 `json:"resultat_net"`
	ShareCapital *float64 `json:"capital_social"`
	Headcount    *int     `json:"effectif"`
}

// Latest returns the filing with the highest fiscal year, or nil.
func (r *FilingsResponse) Latest() *Filing {
	var latest *Filing
	for i := range r.Filings {
		f := &r.Filings[i]
		if latest == nil || f.FiscalYear > latest.FiscalYear {
			latest = f
		}
	}
	return latest
}

// Options configures the HTTP client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// New creates an Infogreffe client.
func New(opts Options) Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Filings(ctx context.Context, siren string) (*FilingsResponse, error) {
	q := url.Values{}
	q.Set("siren", siren)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/entreprise/bilans?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "infogreffe: create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "infogreffe: GET filings for %s", siren)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "infogreffe: read body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return &FilingsResponse{Siren: siren}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("infogreffe: GET filings for %s: HTTP %d", siren, resp.StatusCode)
	}

	var out FilingsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "infogreffe: decode filings")
	}
	return &out, nil
}
