// Package societe scrapes company listings from societe.com.
package societe

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://www.societe.com"

// ErrBlocked is returned when the target serves a captcha or challenge page
// instead of results. The caller should back off rather than retry.
var ErrBlocked = eris.New("societe: blocked by anti-bot protection")

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
}

// CompanySummary is one listing row from a search result page.
type CompanySummary struct {
	Siren string
	Name  string
	Slug  string // detail page path component
}

// SearchResult is one parsed search result page.
type SearchResult struct {
	Companies []CompanySummary
	HasMore   bool
}

// CompanyDetail is a parsed company detail page.
type CompanyDetail struct {
	Siren        string
	SiretSiege   string
	Name         string
	LegalForm    string
	Address      string
	NAFCode      string
	NAFLabel     string
	ShareCapital *float64
	Officer      string
}

// Options configures the scraper client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Client fetches and parses societe.com pages with rotating user agents and
// randomized pacing between requests.
type Client struct {
	baseURL  string
	client   *http.Client
	minDelay time.Duration
	maxDelay time.Duration
	rng      *rand.Rand
}

// New creates a scraper client.
func New(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	minDelay := opts.MinDelay
	if minDelay == 0 {
		minDelay = 500 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay * 4
	}
	return &Client{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SearchPage fetches one page of search results for a department and NAF code.
func (c *Client) SearchPage(ctx context.Context, nafCode, department string, page int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("champs", department)
	q.Set("naf", nafCode)
	q.Set("page", strconv.Itoa(page))

	doc, err := c.fetch(ctx, "/cgi-bin/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	result := &SearchResult{}
	doc.Find("div#result-list a.txt-no-wrap").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		summary := CompanySummary{
			Name: strings.TrimSpace(sel.Text()),
			Slug: strings.TrimPrefix(href, "/"),
		}
		// Detail links end in the 9-digit SIREN: /societe/<name>-<siren>.html
		if siren := sirenFromSlug(href); siren != "" {
			summary.Siren = siren
		}
		result.Companies = append(result.Companies, summary)
	})

	result.HasMore = doc.Find("a.pagination-next, li.next a").Length() > 0
	return result, nil
}

// CompanyPage fetches and parses a company detail page.
func (c *Client) CompanyPage(ctx context.Context, slug string) (*CompanyDetail, error) {
	doc, err := c.fetch(ctx, "/"+strings.TrimPrefix(slug, "/"))
	if err != nil {
		return nil, err
	}

	detail := &CompanyDetail{
		Name: strings.TrimSpace(doc.Find("h1#identite_deno, h1").First().Text()),
	}

	doc.Find("table#rensjur tr, table.table-identite tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))
		value := strings.TrimSpace(row.Find("td").Last().Text())
		switch {
		case strings.Contains(label, "siren"):
			detail.Siren = strings.ReplaceAll(value, " ", "")
		case strings.Contains(label, "siret"):
			detail.SiretSiege = strings.ReplaceAll(value, " ", "")
		case strings.Contains(label, "forme juridique"):
			detail.LegalForm = value
		case strings.Contains(label, "adresse"):
			detail.Address = value
		case strings.Contains(label, "activit") && strings.Contains(label, "naf"):
			detail.NAFCode, detail.NAFLabel = splitNAF(value)
		case strings.Contains(label, "capital"):
			if v, err := parseAmount(value); err == nil {
				detail.ShareCapital = &v
			}
		case strings.Contains(label, "dirigeant"), strings.Contains(label, "gérant"), strings.Contains(label, "président"):
			if detail.Officer == "" {
				detail.Officer = value
			}
		}
	})

	return detail, nil
}

// Delay sleeps a random duration within the configured bounds, or returns
// early if the context is cancelled.
func (c *Client) Delay(ctx context.Context) error {
	span := c.maxDelay - c.minDelay
	d := c.minDelay
	if span > 0 {
		d += time.Duration(c.rng.Int63n(int64(span)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) fetch(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "societe: create request")
	}
	req.Header.Set("User-Agent", userAgents[c.rng.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "societe: GET %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, eris.Wrap(err, "societe: read body")
	}

	if blocked(resp, body) {
		return nil, ErrBlocked
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("societe: GET %s: HTTP %d", path, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "societe: parse HTML")
	}
	return doc, nil
}

// blocked checks a response for captcha or challenge-page markers.
func blocked(resp *http.Response, body []byte) bool {
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true
		}
	}
	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "hcaptcha") ||
		strings.Contains(lower, "checking your browser") {
		return true
	}
	return false
}

func sirenFromSlug(href string) string {
	base := strings.TrimSuffix(href, ".html")
	if i := strings.LastIndex(base, "-"); i >= 0 {
		candidate := base[i+1:]
		if len(candidate) == 9 {
			if _, err := strconv.Atoi(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func splitNAF(value string) (code, label string) {
	// "6920Z (Activités comptables)" or "6920Z - Activités comptables"
	value = strings.TrimSpace(value)
	for i, r := range value {
		if r == ' ' || r == '(' || r == '-' {
			code = strings.TrimSpace(value[:i])
			label = strings.Trim(strings.TrimSpace(value[i:]), "()- ")
			return code, label
		}
	}
	return value, ""
}

func parseAmount(value string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", " ", "", "€", "", "EUR", "", ",", ".").Replace(value)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return v, nil
}
