package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/internal/reconcile"
)

// Importer runs the bulk import pipeline: parse a CSV or XLSX upload,
// map its columns, and reconcile every row into the dataset.
type Importer struct {
	reconciler *reconcile.Reconciler
	cfg        config.ImportConfig
}

// New creates an Importer.
func New(rec *reconcile.Reconciler, cfg config.ImportConfig) *Importer {
	return &Importer{reconciler: rec, cfg: cfg}
}

// ImportBatch ingests one uploaded file. Row failures are collected, not
// fatal: the import only fails as a whole when the file itself cannot be
// parsed or every data row is rejected.
func (im *Importer) ImportBatch(ctx context.Context, r io.Reader, filename string, updateExisting bool) (*model.ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "import: read upload")
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSX(raw)
	case ".csv", ".txt", "":
		rows, err = readCSV(raw)
	default:
		return nil, eris.Errorf("import: unsupported file type %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("import: file is empty")
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	data := rows[1:]
	if im.cfg.MaxRows > 0 && len(data) > im.cfg.MaxRows {
		return nil, eris.Errorf("import: file has %d rows, limit is %d", len(data), im.cfg.MaxRows)
	}

	mode := reconcile.InsertOnly
	if updateExisting {
		mode = reconcile.InsertOrUpdate
	}

	result := &model.ImportResult{
		Filename:  filename,
		TotalRows: len(data),
	}
	for i, row := range data {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "import: cancelled")
		}
		rowNum := i + 1

		rec, err := recordFromRow(row, cols)
		if err != nil {
			result.Errors = append(result.Errors, model.RowError{Row: rowNum, Reason: eris.Cause(err).Error()})
			continue
		}

		outcome, err := im.reconciler.Reconcile(ctx, rec, mode, "import")
		if err != nil {
			result.Errors = append(result.Errors, model.RowError{Row: rowNum, Reason: eris.Cause(err).Error()})
			continue
		}
		switch outcome {
		case reconcile.Inserted:
			result.NewCount++
		case reconcile.Updated:
			result.UpdatedCount++
		case reconcile.Skipped:
			result.SkippedCount++
		}
	}

	result.Success = result.TotalRows > 0 && len(result.Errors) < result.TotalRows

	zap.L().Info("import: batch finished",
		zap.String("filename", filename),
		zap.Int("total", result.TotalRows),
		zap.Int("new", result.NewCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// readCSV parses CSV bytes, tolerating the usual French export quirks:
// UTF-8 BOM, Latin-1 encoding, semicolon delimiters, ragged quoting.
func readCSV(raw []byte) ([][]string, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, eris.Wrap(err, "import: decode latin-1")
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "import: parse csv")
	}
	return rows, nil
}

// detectDelimiter picks the delimiter from the header line. French exports
// commonly use semicolons.
func detectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// readXLSX flattens the first sheet of an XLSX workbook into string rows.
func readXLSX(raw []byte) ([][]string, error) {
	f, err := xlsx.OpenReaderAt(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, eris.Wrap(err, "import: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("import: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// recordFromRow builds a CompanyRecord from one mapped data row.
func recordFromRow(row []string, cols map[string]int) (*model.CompanyRecord, error) {
	cell := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := &model.CompanyRecord{
		Siren:            strings.ReplaceAll(cell("siren"), " ", ""),
		SiretSiege:       strings.ReplaceAll(cell("siret"), " ", ""),
		Name:             cell("name"),
		LegalForm:        cell("legal_form"),
		Address:          cell("address"),
		Email:            cell("email"),
		Phone:            cell("phone"),
		VATNumber:        cell("vat"),
		NAFCode:          cell("naf"),
		NAFLabel:         cell("naf_label"),
		PrincipalOfficer: cell("officer"),
	}

	for field, dst := range map[string]**float64{
		"revenue":       &rec.Revenue,
		"net_result":    &rec.NetResult,
		"share_capital": &rec.ShareCapital,
	} {
		s := cleanNumber(cell(field))
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, eris.Errorf("invalid %s %q", field, cell(field))
		}
		*dst = &v
	}

	if s := cleanNumber(cell("headcount")); s != "" {
		// Some exports spell headcount as a float ("12.0").
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, eris.Errorf("invalid headcount %q", cell("headcount"))
		}
		n := int(v)
		rec.Headcount = &n
	}

	if s := cell("founded"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return nil, err
		}
		rec.Founded = &t
	}

	if s := cell("status"); s != "" {
		status, err := model.ParseStatus(s)
		if err != nil {
			return nil, err
		}
		rec.Status = status
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
