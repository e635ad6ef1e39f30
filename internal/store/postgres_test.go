package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clerks303/Scraping/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

var pgCompanyColumnList = []string{
	"siren", "siret_siege", "name", "legal_form", "address", "email", "phone", "vat_number",
	"revenue", "net_result", "share_capital", "headcount", "naf_code", "naf_label", "founded",
	"principal_officer", "officers", "status", "prospection_score", "score_details",
	"activity_log", "source_link", "last_scraped_at", "created_at", "updated_at",
}

func pgCompanyRow(siren, name string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows(pgCompanyColumnList).AddRow(
		siren, nil, name, nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil, nil,
		nil, []byte(nil), "to-contact", nil, []byte(nil),
		[]byte(nil), nil, nil, now, now,
	)
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS companies").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT (.+) FROM companies WHERE siren").
		WithArgs("552100554").
		WillReturnRows(pgCompanyRow("552100554", "Cabinet Durand"))

	rec, err := st.Get(context.Background(), "552100554")
	require.NoError(t, err)
	assert.Equal(t, "Cabinet Durand", rec.Name)
	assert.Equal(t, model.StatusToContact, rec.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMissing(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT (.+) FROM companies WHERE siren").
		WithArgs("000000000").
		WillReturnRows(pgxmock.NewRows(pgCompanyColumnList))

	_, err := st.Get(context.Background(), "000000000")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Exists(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("552100554").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := st.Exists(context.Background(), "552100554")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Upsert(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	anyArgs := make([]any, 25)
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO companies").
		WithArgs(anyArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := testCompany("552100554")
	require.NoError(t, st.Upsert(context.Background(), rec))
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Count(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Stats(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT COUNT(.+) FROM companies").
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg", "sum", "avg_hc", "email", "phone"}).
			AddRow(3, 10_000_000.0, 30_000_000.0, 25.0, 2, 1))
	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("to-contact", 2).
			AddRow("deal-signed", 1))

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.WithEmail)
	assert.Equal(t, 2, stats.ByStatus["to-contact"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_List(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	rows := pgCompanyRow("552100550", "Alpha")
	now := time.Now().UTC()
	rows.AddRow(
		"552100551", nil, "Beta", nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil, nil,
		nil, []byte(nil), "to-contact", nil, []byte(nil),
		[]byte(nil), nil, nil, now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM companies ORDER BY siren").
		WithArgs(100, 0).
		WillReturnRows(rows)

	out, err := st.List(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Alpha", out[0].Name)
	assert.Equal(t, "Beta", out[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
