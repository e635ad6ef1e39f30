package societe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPageHTML = `<html><body>
<div id="result-list">
	<a class="txt-no-wrap" href="/societe/cabinet-durand-552100554.html">CABINET DURAND</a>
	<a class="txt-no-wrap" href="/societe/cabinet-martin-552100555.html">CABINET MARTIN</a>
	<a class="txt-no-wrap" href="/societe/sans-siren.html">SANS SIREN</a>
</div>
<a class="pagination-next" href="?page=2">Suivant</a>
</body></html>`

const detailPageHTML = `<html><body>
<h1 id="identite_deno">CABINET DURAND</h1>
<table id="rensjur">
	<tr><td>SIREN</td><td>552 100 554</td></tr>
	<tr><td>SIRET (siège)</td><td>552 100 554 00012</td></tr>
	<tr><td>Forme juridique</td><td>SAS</td></tr>
	<tr><td>Adresse</td><td>12 RUE DE LA PAIX 75002 PARIS</td></tr>
	<tr><td>Activité (Code NAF)</td><td>6920Z (Activités comptables)</td></tr>
	<tr><td>Capital social</td><td>50 000,00 €</td></tr>
	<tr><td>Dirigeant</td><td>Marie DURAND</td></tr>
</table>
</body></html>`

func newTestClient(url string) *Client {
	return New(Options{
		BaseURL:  url,
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
	})
}

func TestSearchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi-bin/search", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(searchPageHTML))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).SearchPage(context.Background(), "6920Z", "75", 1)
	require.NoError(t, err)
	require.Len(t, result.Companies, 3)
	assert.Equal(t, "552100554", result.Companies[0].Siren)
	assert.Equal(t, "CABINET DURAND", result.Companies[0].Name)
	assert.Empty(t, result.Companies[2].Siren) // slug without a SIREN suffix
	assert.True(t, result.HasMore)
}

func TestCompanyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailPageHTML))
	}))
	defer srv.Close()

	detail, err := newTestClient(srv.URL).CompanyPage(context.Background(), "societe/cabinet-durand-552100554.html")
	require.NoError(t, err)
	assert.Equal(t, "CABINET DURAND", detail.Name)
	assert.Equal(t, "552100554", detail.Siren)
	assert.Equal(t, "55210055400012", detail.SiretSiege)
	assert.Equal(t, "SAS", detail.LegalForm)
	assert.Equal(t, "6920Z", detail.NAFCode)
	assert.Equal(t, "Activités comptables", detail.NAFLabel)
	require.NotNil(t, detail.ShareCapital)
	assert.InDelta(t, 50_000.0, *detail.ShareCapital, 0.01)
	assert.Equal(t, "Marie DURAND", detail.Officer)
}

func TestBlockedByCaptcha(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="g-recaptcha"></div></body></html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SearchPage(context.Background(), "6920Z", "75", 1)
	require.ErrorIs(t, err, ErrBlocked)
}

func TestBlockedByCloudflare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("cf-ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SearchPage(context.Background(), "6920Z", "75", 1)
	require.ErrorIs(t, err, ErrBlocked)
}

func TestDelayCancellable(t *testing.T) {
	c := New(Options{MinDelay: time.Minute, MaxDelay: 2 * time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Delay(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSirenFromSlug(t *testing.T) {
	assert.Equal(t, "552100554", sirenFromSlug("/societe/cabinet-durand-552100554.html"))
	assert.Empty(t, sirenFromSlug("/societe/sans-siren.html"))
	assert.Empty(t, sirenFromSlug("/societe/short-1234.html"))
}

func TestSplitNAF(t *testing.T) {
	code, label := splitNAF("6920Z (Activités comptables)")
	assert.Equal(t, "6920Z", code)
	assert.Equal(t, "Activités comptables", label)

	code, label = splitNAF("6920Z - Activités comptables")
	assert.Equal(t, "6920Z", code)
	assert.Equal(t, "Activités comptables", label)

	code, label = splitNAF("6920Z")
	assert.Equal(t, "6920Z", code)
	assert.Empty(t, label)
}
