package pappers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recherche", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_token"))
		assert.Equal(t, "6920Z", q.Get("code_naf"))
		assert.Equal(t, "75", q.Get("departement"))
		assert.Equal(t, "false", q.Get("entreprise_cessee"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total": 2,
			"page": 1,
			"par_page": 100,
			"resultats": [
				{"siren": "552100554", "nom_entreprise": "Cabinet Durand", "code_naf": "6920Z", "chiffre_affaires": 12500000},
				{"siren": "552100555", "nom_entreprise": "Cabinet Martin", "code_naf": "6920Z"}
			]
		}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "test-key", BaseURL: srv.URL, RatePerSecond: 1000})

	resp, err := c.Search(context.Background(), SearchRequest{
		NAFCode:    "6920Z",
		Department: "75",
		Page:       1,
		ActiveOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Cabinet Durand", resp.Results[0].Name)
	require.NotNil(t, resp.Results[0].Revenue)
	assert.InDelta(t, 12_500_000.0, *resp.Results[0].Revenue, 0.01)
	assert.False(t, resp.HasMore())
}

func TestSearch_Pagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 250, "page": 1, "par_page": 100, "resultats": []}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, RatePerSecond: 1000})

	resp, err := c.Search(context.Background(), SearchRequest{Page: 1})
	require.NoError(t, err)
	assert.True(t, resp.HasMore())
}

func TestCompany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entreprise", r.URL.Path)
		assert.Equal(t, "552100554", r.URL.Query().Get("siren"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"siren": "552100554",
			"nom_entreprise": "Cabinet Durand",
			"email": "contact@durand.fr",
			"telephone": "0142000000",
			"capital": 50000,
			"representants": [{"prenom": "Marie", "nom": "Durand", "qualite": "Président"}]
		}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, RatePerSecond: 1000})

	resp, err := c.Company(context.Background(), "552100554")
	require.NoError(t, err)
	assert.Equal(t, "contact@durand.fr", resp.Email)
	require.NotNil(t, resp.ShareCapital)
	assert.InDelta(t, 50_000.0, *resp.ShareCapital, 0.01)
	require.Len(t, resp.Representatives, 1)
	assert.Equal(t, "Durand", resp.Representatives[0].LastName)
}

func TestQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, RatePerSecond: 1000})

	_, err := c.Search(context.Background(), SearchRequest{})
	require.Error(t, err)
	assert.True(t, IsQuota(err))
}

func TestIsQuota_OtherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, RatePerSecond: 1000})

	_, err := c.Search(context.Background(), SearchRequest{})
	require.Error(t, err)
	assert.False(t, IsQuota(err))
	assert.False(t, IsQuota(nil))
}
