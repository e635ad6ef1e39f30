package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/internal/reconcile"
	"github.com/Clerks303/Scraping/internal/scorer"
	"github.com/Clerks303/Scraping/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestImporter(t *testing.T) (*Importer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	rec := reconcile.New(st, scorer.NewHeuristic())
	return New(rec, config.ImportConfig{MaxRows: 1000}), st
}

func TestImportBatch_CSV(t *testing.T) {
	im, st := newTestImporter(t)

	csv := "siren,nom,ca,effectif,email\n" +
		"552100554,Cabinet Durand,12500000,42,contact@durand.fr\n" +
		"552100555,Cabinet Martin,8000000,12,\n"

	result, err := im.ImportBatch(context.Background(), strings.NewReader(csv), "companies.csv", false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.NewCount)
	assert.Empty(t, result.Errors)

	got, err := st.Get(context.Background(), "552100554")
	require.NoError(t, err)
	assert.Equal(t, "Cabinet Durand", got.Name)
	require.NotNil(t, got.Revenue)
	assert.InDelta(t, 12_500_000.0, *got.Revenue, 0.01)
	require.NotNil(t, got.Headcount)
	assert.Equal(t, 42, *got.Headcount)
	assert.Equal(t, "contact@durand.fr", got.Email)
}

func TestImportBatch_SemicolonFrenchNumbers(t *testing.T) {
	im, st := newTestImporter(t)

	csv := "siren;raison_sociale;chiffre_affaires;date_creation\n" +
		"552100554;Cabinet Dupont;12 500 000,50 €;15/03/1998\n"

	result, err := im.ImportBatch(context.Background(), strings.NewReader(csv), "export.csv", false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NewCount)

	got, err := st.Get(context.Background(), "552100554")
	require.NoError(t, err)
	assert.Equal(t, "Cabinet Dupont", got.Name)
	require.NotNil(t, got.Revenue)
	assert.InDelta(t, 12_500_000.50, *got.Revenue, 0.01)
	require.NotNil(t, got.Founded)
	assert.Equal(t, 1998, got.Founded.Year())
	assert.Equal(t, 3, int(got.Founded.Month()))
}

func TestImportBatch_BOMAndStatusAlias(t *testing.T) {
	im, st := newTestImporter(t)

	csv := "\xEF\xBB\xBFsiren,nom,statut\n" +
		"552100554,Cabinet Durand,à contacter\n"

	result, err := im.ImportBatch(context.Background(), strings.NewReader(csv), "companies.csv", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewCount)

	got, err := st.Get(context.Background(), "552100554")
	require.NoError(t, err)
	assert.Equal(t, model.StatusToContact, got.Status)
}

func TestImportBatch_Latin1Fallback(t *testing.T) {
	im, st := newTestImporter(t)

	utf8CSV := "siren,nom\n552100554,Société Générale d'Expertise\n"
	latin1, err := charmap.Windows1252.NewEncoder().String(utf8CSV)
	require.NoError(t, err)

	result, err := im.ImportBatch(context.Background(), strings.NewReader(latin1), "legacy.csv", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewCount)

	got, err := st.Get(context.Background(), "552100554")
	require.NoError(t, err)
	assert.Equal(t, "Société Générale d'Expertise", got.Name)
}

func TestImportBatch_RowErrorsDoNotAbort(t *testing.T) {
	im, _ := newTestImporter(t)

	csv := "siren,nom,ca\n" +
		"552100554,Cabinet Durand,12500000\n" +
		"not-a-siren,Broken Row,100\n" +
		"552100555,,5000000\n" + // missing name
		"552100556,Cabinet Petit,abc\n" + // bad number
		"552100557,Cabinet Bon,9000000\n"

	result, err := im.ImportBatch(context.Background(), strings.NewReader(csv), "mixed.csv", false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 2, result.NewCount)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, 3, result.Errors[1].Row)
	assert.Equal(t, 4, result.Errors[2].Row)
}

func TestImportBatch_AllRowsFail(t *testing.T) {
	im, _ := newTestImporter(t)

	csv := "siren,nom\nbad1,X\nbad2,Y\n"

	result, err := im.ImportBatch(context.Background(), strings.NewReader(csv), "bad.csv", false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 2)
}

func TestImportBatch_DuplicateModes(t *testing.T) {
	im, st := newTestImporter(t)
	ctx := context.Background()

	first := "siren,nom,email\n552100554,Cabinet Durand,old@durand.fr\n"
	_, err := im.ImportBatch(ctx, strings.NewReader(first), "a.csv", false)
	require.NoError(t, err)

	// Default mode skips the duplicate.
	second := "siren,nom,email\n552100554,Cabinet Durand,new@durand.fr\n"
	result, err := im.ImportBatch(ctx, strings.NewReader(second), "b.csv", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedCount)

	got, err := st.Get(ctx, "552100554")
	require.NoError(t, err)
	assert.Equal(t, "old@durand.fr", got.Email)

	// update_existing merges instead.
	result, err = im.ImportBatch(ctx, strings.NewReader(second), "c.csv", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)

	got, err = st.Get(ctx, "552100554")
	require.NoError(t, err)
	assert.Equal(t, "new@durand.fr", got.Email)
}

func TestImportBatch_NoSirenColumn(t *testing.T) {
	im, _ := newTestImporter(t)

	csv := "nom,ca\nCabinet Durand,100\n"
	_, err := im.ImportBatch(context.Background(), strings.NewReader(csv), "nosiren.csv", false)
	require.Error(t, err)
}

func TestImportBatch_EmptyFile(t *testing.T) {
	im, _ := newTestImporter(t)

	_, err := im.ImportBatch(context.Background(), strings.NewReader(""), "empty.csv", false)
	require.Error(t, err)
}

func TestImportBatch_RowLimit(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	im := New(reconcile.New(st, scorer.NewHeuristic()), config.ImportConfig{MaxRows: 1})

	csv := "siren,nom\n552100554,A\n552100555,B\n"
	_, err = im.ImportBatch(context.Background(), strings.NewReader(csv), "big.csv", false)
	require.Error(t, err)
}

func TestImportBatch_UnsupportedExtension(t *testing.T) {
	im, _ := newTestImporter(t)

	_, err := im.ImportBatch(context.Background(), strings.NewReader("x"), "companies.pdf", false)
	require.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "chiffre_d_affaires", normalizeHeader("Chiffre d'affaires"))
	assert.Equal(t, "raison_sociale", normalizeHeader("  Raison Sociale "))
	assert.Equal(t, "siren", normalizeHeader("SIREN"))
	assert.Equal(t, "code_naf", normalizeHeader("Code NAF"))
}

func TestCleanNumber(t *testing.T) {
	assert.Equal(t, "12500000.50", cleanNumber("12 500 000,50 €"))
	assert.Equal(t, "1234.5", cleanNumber("1234,5"))
	assert.Empty(t, cleanNumber("N/A"))
	assert.Empty(t, cleanNumber("-"))
	assert.Empty(t, cleanNumber(""))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("15/03/1998")
	require.NoError(t, err)
	assert.Equal(t, 1998, d.Year())

	d, err = parseDate("2020-07-01")
	require.NoError(t, err)
	assert.Equal(t, 7, int(d.Month()))

	_, err = parseDate("soon")
	require.Error(t, err)
}
