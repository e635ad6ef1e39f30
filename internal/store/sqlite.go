package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Clerks303/Scraping/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	siren             TEXT PRIMARY KEY,
	siret_siege       TEXT,
	name              TEXT NOT NULL,
	legal_form        TEXT,
	address           TEXT,
	email             TEXT,
	phone             TEXT,
	vat_number        TEXT,
	revenue           REAL,
	net_result        REAL,
	share_capital     REAL,
	headcount         INTEGER,
	naf_code          TEXT,
	naf_label         TEXT,
	founded           DATETIME,
	principal_officer TEXT,
	officers          TEXT,
	status            TEXT NOT NULL DEFAULT 'to-contact',
	prospection_score REAL,
	score_details     TEXT,
	activity_log      TEXT,
	source_link       TEXT,
	last_scraped_at   DATETIME,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_companies_revenue ON companies(revenue);
CREATE INDEX IF NOT EXISTS idx_companies_score ON companies(prospection_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteCompanyColumns = `siren, siret_siege, name, legal_form, address, email, phone, vat_number,
	revenue, net_result, share_capital, headcount, naf_code, naf_label, founded,
	principal_officer, officers, status, prospection_score, score_details,
	activity_log, source_link, last_scraped_at, created_at, updated_at`

func (s *SQLiteStore) Get(ctx context.Context, siren string) (*model.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCompanyColumns+` FROM companies WHERE siren = ?`, siren)

	rec, err := scanSQLiteCompany(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", siren)
	}
	return rec, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, siren string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM companies WHERE siren = ?`, siren).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: exists %s", siren)
	}
	return true, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec *model.CompanyRecord) error {
	officers, scoreDetails, activityLog, err := marshalCompanyJSON(rec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO companies (`+sqliteCompanyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(siren) DO UPDATE SET
			siret_siege = excluded.siret_siege,
			name = excluded.name,
			legal_form = excluded.legal_form,
			address = excluded.address,
			email = excluded.email,
			phone = excluded.phone,
			vat_number = excluded.vat_number,
			revenue = excluded.revenue,
			net_result = excluded.net_result,
			share_capital = excluded.share_capital,
			headcount = excluded.headcount,
			naf_code = excluded.naf_code,
			naf_label = excluded.naf_label,
			founded = excluded.founded,
			principal_officer = excluded.principal_officer,
			officers = excluded.officers,
			status = excluded.status,
			prospection_score = excluded.prospection_score,
			score_details = excluded.score_details,
			activity_log = excluded.activity_log,
			source_link = excluded.source_link,
			last_scraped_at = excluded.last_scraped_at,
			updated_at = excluded.updated_at`,
		rec.Siren, nullStr(rec.SiretSiege), rec.Name, nullStr(rec.LegalForm),
		nullStr(rec.Address), nullStr(rec.Email), nullStr(rec.Phone), nullStr(rec.VATNumber),
		rec.Revenue, rec.NetResult, rec.ShareCapital, rec.Headcount,
		nullStr(rec.NAFCode), nullStr(rec.NAFLabel), rec.Founded,
		nullStr(rec.PrincipalOfficer), officers, string(rec.Status),
		rec.ProspectionScore, scoreDetails, activityLog,
		nullStr(rec.SourceLink), rec.LastScrapedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert company %s", rec.Siren)
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]model.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteCompanyColumns+` FROM companies ORDER BY siren LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.CompanyRecord
	for rows.Next() {
		rec, err := scanSQLiteCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies")
}

func (s *SQLiteStore) ListSirens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT siren FROM companies`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sirens")
	}
	defer rows.Close()

	var sirens []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan siren")
		}
		sirens = append(sirens, s)
	}
	return sirens, eris.Wrap(rows.Err(), "sqlite: list sirens")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count companies")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(revenue), 0),
			COALESCE(SUM(revenue), 0),
			COALESCE(AVG(headcount), 0),
			COALESCE(SUM(CASE WHEN email IS NOT NULL AND email != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN phone IS NOT NULL AND phone != '' THEN 1 ELSE 0 END), 0)
		FROM companies`).
		Scan(&st.Total, &st.AvgRevenue, &st.TotalRevenue, &st.AvgHeadcount, &st.WithEmail, &st.WithPhone)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM companies GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		st.ByStatus[status] = n
	}
	return st, eris.Wrap(rows.Err(), "sqlite: stats by status")
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCompany(sc scanner) (*model.CompanyRecord, error) {
	var rec model.CompanyRecord
	var siretSiege, legalForm, address, email, phone, vatNumber sql.NullString
	var nafCode, nafLabel, principalOfficer, sourceLink sql.NullString
	var officers, scoreDetails, activityLog sql.NullString
	var status string

	err := sc.Scan(
		&rec.Siren, &siretSiege, &rec.Name, &legalForm, &address, &email, &phone, &vatNumber,
		&rec.Revenue, &rec.NetResult, &rec.ShareCapital, &rec.Headcount,
		&nafCode, &nafLabel, &rec.Founded,
		&principalOfficer, &officers, &status, &rec.ProspectionScore, &scoreDetails,
		&activityLog, &sourceLink, &rec.LastScrapedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SiretSiege = siretSiege.String
	rec.LegalForm = legalForm.String
	rec.Address = address.String
	rec.Email = email.String
	rec.Phone = phone.String
	rec.VATNumber = vatNumber.String
	rec.NAFCode = nafCode.String
	rec.NAFLabel = nafLabel.String
	rec.PrincipalOfficer = principalOfficer.String
	rec.SourceLink = sourceLink.String
	rec.Status = model.Status(status)

	if officers.Valid && officers.String != "" {
		if err := json.Unmarshal([]byte(officers.String), &rec.Officers); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal officers")
		}
	}
	if scoreDetails.Valid && scoreDetails.String != "" {
		if err := json.Unmarshal([]byte(scoreDetails.String), &rec.ScoreDetails); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal score details")
		}
	}
	if activityLog.Valid && activityLog.String != "" {
		if err := json.Unmarshal([]byte(activityLog.String), &rec.ActivityLog); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal activity log")
		}
	}
	return &rec, nil
}

func marshalCompanyJSON(rec *model.CompanyRecord) (officers, scoreDetails, activityLog *string, err error) {
	if len(rec.Officers) > 0 {
		b, err := json.Marshal(rec.Officers)
		if err != nil {
			return nil, nil, nil, eris.Wrap(err, "store: marshal officers")
		}
		s := string(b)
		officers = &s
	}
	if rec.ScoreDetails != nil {
		b, err := json.Marshal(rec.ScoreDetails)
		if err != nil {
			return nil, nil, nil, eris.Wrap(err, "store: marshal score details")
		}
		s := string(b)
		scoreDetails = &s
	}
	if len(rec.ActivityLog) > 0 {
		b, err := json.Marshal(rec.ActivityLog)
		if err != nil {
			return nil, nil, nil, eris.Wrap(err, "store: marshal activity log")
		}
		s := string(b)
		activityLog = &s
	}
	return officers, scoreDetails, activityLog, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
