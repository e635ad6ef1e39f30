package importer

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// headerAliases maps the column spellings seen in customer exports to
// canonical field names. Headers are normalized before lookup.
var headerAliases = map[string]string{
	"siren":              "siren",
	"numero_siren":       "siren",
	"siret":              "siret",
	"siret_siege":        "siret",
	"nom":                "name",
	"name":               "name",
	"denomination":       "name",
	"raison_sociale":     "name",
	"nom_entreprise":     "name",
	"entreprise":         "name",
	"forme_juridique":    "legal_form",
	"legal_form":         "legal_form",
	"adresse":            "address",
	"address":            "address",
	"email":              "email",
	"mail":               "email",
	"courriel":           "email",
	"telephone":          "phone",
	"tel":                "phone",
	"phone":              "phone",
	"tva":                "vat",
	"numero_tva":         "vat",
	"vat":                "vat",
	"ca":                 "revenue",
	"chiffre_affaires":   "revenue",
	"chiffre_d_affaires": "revenue",
	"revenue":            "revenue",
	"resultat":           "net_result",
	"resultat_net":       "net_result",
	"net_result":         "net_result",
	"capital":            "share_capital",
	"capital_social":     "share_capital",
	"effectif":           "headcount",
	"effectifs":          "headcount",
	"headcount":          "headcount",
	"naf":                "naf",
	"code_naf":           "naf",
	"ape":                "naf",
	"code_ape":           "naf",
	"activite":           "naf_label",
	"libelle_naf":        "naf_label",
	"date_creation":      "founded",
	"creation":           "founded",
	"founded":            "founded",
	"dirigeant":          "officer",
	"gerant":             "officer",
	"president":          "officer",
	"officer":            "officer",
	"statut":             "status",
	"status":             "status",
}

// accentFold strips the accents that appear in French export headers.
var accentFold = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"û", "u", "ù", "u", "ü", "u",
	"ç", "c",
	"'", "_", "’", "_",
)

// normalizeHeader canonicalizes one header cell for alias lookup.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = accentFold.Replace(h)
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "_", "(", "", ")", "").Replace(h)
	for strings.Contains(h, "__") {
		h = strings.ReplaceAll(h, "__", "_")
	}
	return strings.Trim(h, "_")
}

// mapHeader resolves every column of the header row to a canonical field,
// returning column index by field name. Unknown columns are ignored.
func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		field, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := cols[field]; !dup {
			cols[field] = i
		}
	}
	if _, ok := cols["siren"]; !ok {
		return nil, eris.New("import: no siren column found in header")
	}
	return cols, nil
}

// numberCleaner strips the currency and grouping noise of French exports
// ("1 234 567,89 €") before parsing.
var numberCleaner = strings.NewReplacer(
	" ", "", " ", "", " ", "",
	"€", "", "eur", "", "EUR", "",
	",", ".",
)

// cleanNumber prepares a numeric cell for strconv parsing. Returns "" for
// cells that hold no value.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "n/a", "na", "nc", "null":
		return ""
	}
	return numberCleaner.Replace(s)
}

var dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "2006"}

// parseDate accepts the date spellings seen in exports, French day-first
// included.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("import: unrecognized date %q", s)
}
