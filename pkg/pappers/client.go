// Package pappers wraps the Pappers v2 company search API.
package pappers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Pappers v2 API.
const defaultBaseURL = "https://api.pappers.fr/v2"

// Client defines the Pappers API operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Company(ctx context.Context, siren string) (*CompanyResponse, error)
}

// SearchRequest is the query for GET /recherche.
type SearchRequest struct {
	NAFCode    string
	Department string
	Page       int
	PerPage    int
	MinRevenue float64
	ActiveOnly bool
}

// SearchResponse is the response from GET /recherche.
type SearchResponse struct {
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"par_page"`
	Results []CompanyResult `json:"resultats"`
}

// HasMore reports whether another page of results exists.
func (r *SearchResponse) HasMore() bool {
	return r.Page*r.PerPage < r.Total
}

// CompanyResult is one company in a search result page.
type CompanyResult struct {
	Siren        string   `json:"siren"`
	SiretSiege   string   `json:"siret_siege"`
	Name         string   `json:"nom_entreprise"`
	LegalForm    string   `json:"forme_juridique"`
	CreationDate string   `json:"date_creation"`
	NAFCode      string   `json:"code_naf"`
	NAFLabel     string   `json:"libelle_code_naf"`
	AddressLine1 string   `json:"adresse_ligne_1"`
	PostalCode   string   `json:"code_postal"`
	City         string   `json:"ville"`
	Revenue      *float64 `json:"chiffre_affaires"`
	NetResult    *float64 `json:"resultat"`
	Headcount    *int     `json:"effectif"`
}

// CompanyResponse is the response from GET /entreprise.
type CompanyResponse struct {
	CompanyResult
	Email           string           `json:"email"`
	Phone           string           `json:"telephone"`
	VATNumber       string           `json:"numero_tva_intracommunautaire"`
	ShareCapital    *float64         `json:"capital"`
	Representatives []Representative `json:"representants"`
}

// Representative is a company officer as returned by the API.
type Representative struct {
	FirstName string `json:"prenom"`
	LastName  string `json:"nom"`
	Role      string `json:"qualite"`
}

// APIError carries the HTTP status of a failed Pappers call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pappers: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsQuota reports whether err is an exhausted-quota or rate-limit response.
func IsQuota(err error) bool {
	var apiErr *APIError
	if eris.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusPaymentRequired
	}
	return false
}

// Options configures the HTTP client.
type Options struct {
	APIKey        string
	BaseURL       string
	RatePerSecond float64
	Timeout       time.Duration
}

type httpClient struct {
	apiKey  string
	baseURL string
	limiter *rate.Limiter
	client  *http.Client
}

// New creates a rate-limited Pappers client.
func New(opts Options) Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = 2
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("api_token", c.apiKey)
	q.Set("precision", "standard")
	if req.NAFCode != "" {
		q.Set("code_naf", req.NAFCode)
	}
	if req.Department != "" {
		q.Set("departement", req.Department)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	perPage := req.PerPage
	if perPage == 0 {
		perPage = 100
	}
	q.Set("par_page", strconv.Itoa(perPage))
	if req.MinRevenue > 0 {
		q.Set("chiffre_affaires_min", strconv.FormatFloat(req.MinRevenue, 'f', 0, 64))
	}
	if req.ActiveOnly {
		q.Set("entreprise_cessee", "false")
	}

	var resp SearchResponse
	if err := c.get(ctx, "/recherche", q, &resp); err != nil {
		return nil, err
	}
	if resp.Page == 0 {
		resp.Page = req.Page
	}
	if resp.PerPage == 0 {
		resp.PerPage = perPage
	}
	return &resp, nil
}

func (c *httpClient) Company(ctx context.Context, siren string) (*CompanyResponse, error) {
	q := url.Values{}
	q.Set("api_token", c.apiKey)
	q.Set("siren", siren)

	var resp CompanyResponse
	if err := c.get(ctx, "/entreprise", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "pappers: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "pappers: create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "pappers: GET %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return eris.Wrap(err, "pappers: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Wrapf(&APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)},
			"pappers: GET %s", path)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "pappers: decode %s response", path)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
