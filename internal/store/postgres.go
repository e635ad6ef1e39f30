package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Clerks303/Scraping/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	siren             TEXT PRIMARY KEY,
	siret_siege       TEXT,
	name              TEXT NOT NULL,
	legal_form        TEXT,
	address           TEXT,
	email             TEXT,
	phone             TEXT,
	vat_number        TEXT,
	revenue           DOUBLE PRECISION,
	net_result        DOUBLE PRECISION,
	share_capital     DOUBLE PRECISION,
	headcount         INTEGER,
	naf_code          TEXT,
	naf_label         TEXT,
	founded           TIMESTAMPTZ,
	principal_officer TEXT,
	officers          JSONB,
	status            TEXT NOT NULL DEFAULT 'to-contact',
	prospection_score DOUBLE PRECISION,
	score_details     JSONB,
	activity_log      JSONB,
	source_link       TEXT,
	last_scraped_at   TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_companies_revenue ON companies(revenue);
CREATE INDEX IF NOT EXISTS idx_companies_score ON companies(prospection_score);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgCompanyColumns = `siren, siret_siege, name, legal_form, address, email, phone, vat_number,
	revenue, net_result, share_capital, headcount, naf_code, naf_label, founded,
	principal_officer, officers, status, prospection_score, score_details,
	activity_log, source_link, last_scraped_at, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, siren string) (*model.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgCompanyColumns+` FROM companies WHERE siren = $1`, siren)

	rec, err := scanPostgresCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", siren)
	}
	return rec, nil
}

func (s *PostgresStore) Exists(ctx context.Context, siren string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE siren = $1)`, siren).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: exists %s", siren)
}

func (s *PostgresStore) Upsert(ctx context.Context, rec *model.CompanyRecord) error {
	officers, scoreDetails, activityLog, err := marshalCompanyJSONB(rec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO companies (`+pgCompanyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (siren) DO UPDATE SET
			siret_siege = EXCLUDED.siret_siege,
			name = EXCLUDED.name,
			legal_form = EXCLUDED.legal_form,
			address = EXCLUDED.address,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			vat_number = EXCLUDED.vat_number,
			revenue = EXCLUDED.revenue,
			net_result = EXCLUDED.net_result,
			share_capital = EXCLUDED.share_capital,
			headcount = EXCLUDED.headcount,
			naf_code = EXCLUDED.naf_code,
			naf_label = EXCLUDED.naf_label,
			founded = EXCLUDED.founded,
			principal_officer = EXCLUDED.principal_officer,
			officers = EXCLUDED.officers,
			status = EXCLUDED.status,
			prospection_score = EXCLUDED.prospection_score,
			score_details = EXCLUDED.score_details,
			activity_log = EXCLUDED.activity_log,
			source_link = EXCLUDED.source_link,
			last_scraped_at = EXCLUDED.last_scraped_at,
			updated_at = EXCLUDED.updated_at`,
		rec.Siren, nullStr(rec.SiretSiege), rec.Name, nullStr(rec.LegalForm),
		nullStr(rec.Address), nullStr(rec.Email), nullStr(rec.Phone), nullStr(rec.VATNumber),
		rec.Revenue, rec.NetResult, rec.ShareCapital, rec.Headcount,
		nullStr(rec.NAFCode), nullStr(rec.NAFLabel), rec.Founded,
		nullStr(rec.PrincipalOfficer), officers, string(rec.Status),
		rec.ProspectionScore, scoreDetails, activityLog,
		nullStr(rec.SourceLink), rec.LastScrapedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert company %s", rec.Siren)
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]model.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgCompanyColumns+` FROM companies ORDER BY siren LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.CompanyRecord
	for rows.Next() {
		rec, err := scanPostgresCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies")
}

func (s *PostgresStore) ListSirens(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT siren FROM companies`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sirens")
	}
	defer rows.Close()

	var sirens []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrap(err, "postgres: scan siren")
		}
		sirens = append(sirens, s)
	}
	return sirens, eris.Wrap(rows.Err(), "postgres: list sirens")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count companies")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[string]int)}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(revenue), 0),
			COALESCE(SUM(revenue), 0),
			COALESCE(AVG(headcount), 0),
			COUNT(*) FILTER (WHERE email IS NOT NULL AND email != ''),
			COUNT(*) FILTER (WHERE phone IS NOT NULL AND phone != '')
		FROM companies`).
		Scan(&st.Total, &st.AvgRevenue, &st.TotalRevenue, &st.AvgHeadcount, &st.WithEmail, &st.WithPhone)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM companies GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		st.ByStatus[status] = n
	}
	return st, eris.Wrap(rows.Err(), "postgres: stats by status")
}

func scanPostgresCompany(row pgx.Row) (*model.CompanyRecord, error) {
	var rec model.CompanyRecord
	var siretSiege, legalForm, address, email, phone, vatNumber *string
	var nafCode, nafLabel, principalOfficer, sourceLink *string
	var officers, scoreDetails, activityLog []byte
	var status string

	err := row.Scan(
		&rec.Siren, &siretSiege, &rec.Name, &legalForm, &address, &email, &phone, &vatNumber,
		&rec.Revenue, &rec.NetResult, &rec.ShareCapital, &rec.Headcount,
		&nafCode, &nafLabel, &rec.Founded,
		&principalOfficer, &officers, &status, &rec.ProspectionScore, &scoreDetails,
		&activityLog, &sourceLink, &rec.LastScrapedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SiretSiege = deref(siretSiege)
	rec.LegalForm = deref(legalForm)
	rec.Address = deref(address)
	rec.Email = deref(email)
	rec.Phone = deref(phone)
	rec.VATNumber = deref(vatNumber)
	rec.NAFCode = deref(nafCode)
	rec.NAFLabel = deref(nafLabel)
	rec.PrincipalOfficer = deref(principalOfficer)
	rec.SourceLink = deref(sourceLink)
	rec.Status = model.Status(status)

	if len(officers) > 0 {
		if err := json.Unmarshal(officers, &rec.Officers); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal officers")
		}
	}
	if len(scoreDetails) > 0 {
		if err := json.Unmarshal(scoreDetails, &rec.ScoreDetails); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal score details")
		}
	}
	if len(activityLog) > 0 {
		if err := json.Unmarshal(activityLog, &rec.ActivityLog); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal activity log")
		}
	}
	return &rec, nil
}

func marshalCompanyJSONB(rec *model.CompanyRecord) (officers, scoreDetails, activityLog []byte, err error) {
	if len(rec.Officers) > 0 {
		if officers, err = json.Marshal(rec.Officers); err != nil {
			return nil, nil, nil, eris.Wrap(err, "store: marshal officers")
		}
	}
	if rec.ScoreDetails != nil {
		if scoreDetails, err = json.Marshal(rec.ScoreDetails); err != nil {
			return nil, nil, nil, eris.Wrap(err, "store: marshal score details")
		}
	}
	if len(rec.ActivityLog) > 0 {
		if activityLog, err = json.Marshal(rec.ActivityLog); err != nil {
			return nil, nil, nil, eris.Wrap(err, "store: marshal activity log")
		}
	}
	return officers, scoreDetails, activityLog, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
