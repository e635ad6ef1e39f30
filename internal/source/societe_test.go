package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/pkg/societe"
)

const societeListingHTML = `<html><body>
<div id="result-list">
	<a class="txt-no-wrap" href="/societe/cabinet-durand-552100554.html">CABINET DURAND</a>
</div>
</body></html>`

const societeDetailHTML = `<html><body>
<h1 id="identite_deno">CABINET DURAND</h1>
<table id="rensjur">
	<tr><td>Forme juridique</td><td>SAS</td></tr>
	<tr><td>Adresse</td><td>12 RUE DE LA PAIX 75002 PARIS</td></tr>
	<tr><td>Dirigeant</td><td>Marie DURAND</td></tr>
</table>
</body></html>`

func newSocieteSource(t *testing.T, handler http.HandlerFunc, departments []string, seed ...model.CompanyRecord) *SocieteSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := societe.New(societe.Options{
		BaseURL:  srv.URL,
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
	})
	return NewSociete(client, newSeededStore(t, seed...), config.SocieteConfig{
		NAFCode:         "6920Z",
		Departments:     departments,
		MaxPagesPerDept: 3,
	})
}

func TestSocieteRun_ScrapesListings(t *testing.T) {
	src := newSocieteSource(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/societe/") {
			_, _ = w.Write([]byte(societeDetailHTML))
			return
		}
		_, _ = w.Write([]byte(societeListingHTML))
	}, []string{"75"})

	var reports []Report
	err := src.Run(context.Background(), Params{}, collectReports(&reports))
	require.NoError(t, err)

	var records []model.CompanyRecord
	for _, r := range reports {
		records = append(records, r.Records...)
	}
	require.Len(t, records, 1)
	assert.Equal(t, "552100554", records[0].Siren)
	assert.Equal(t, "SAS", records[0].LegalForm)
	assert.Equal(t, "Marie DURAND", records[0].PrincipalOfficer)
	assert.Equal(t, "6920Z", records[0].NAFCode)
	assert.NotNil(t, records[0].LastScrapedAt)

	last := reports[len(reports)-1]
	assert.Equal(t, 100, last.Progress)
}

func TestSocieteRun_SkipsKnownCompanies(t *testing.T) {
	detailHits := 0
	src := newSocieteSource(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/societe/") {
			detailHits++
			_, _ = w.Write([]byte(societeDetailHTML))
			return
		}
		_, _ = w.Write([]byte(societeListingHTML))
	}, []string{"75"}, seedCompany("552100554", 5_000_000))

	var reports []Report
	err := src.Run(context.Background(), Params{}, collectReports(&reports))
	require.NoError(t, err)

	assert.Zero(t, detailHits)
	for _, r := range reports {
		assert.Empty(t, r.Records)
	}
}

func TestSocieteRun_AllDepartmentsBlocked(t *testing.T) {
	src := newSocieteSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="g-recaptcha"></div></body></html>`))
	}, []string{"75", "92"})

	err := src.Run(context.Background(), Params{}, func(Report) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestSocieteRun_PartialBlockContinues(t *testing.T) {
	src := newSocieteSource(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/societe/") {
			_, _ = w.Write([]byte(societeDetailHTML))
			return
		}
		if r.URL.Query().Get("champs") == "75" {
			_, _ = w.Write([]byte(`<html><body><div class="g-recaptcha"></div></body></html>`))
			return
		}
		_, _ = w.Write([]byte(societeListingHTML))
	}, []string{"75", "92"})

	var reports []Report
	err := src.Run(context.Background(), Params{}, collectReports(&reports))
	require.NoError(t, err)

	var records []model.CompanyRecord
	for _, r := range reports {
		records = append(records, r.Records...)
	}
	require.Len(t, records, 1)
}

func TestSocieteRun_Cancelled(t *testing.T) {
	src := newSocieteSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(societeListingHTML))
	}, []string{"75"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := src.Run(ctx, Params{}, func(Report) {})
	require.Error(t, err)
}
