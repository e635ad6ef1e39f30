package reconcile

import (
	"github.com/Clerks303/Scraping/internal/model"
)

// merge copies non-empty incoming fields over the existing record.
// Empty or unknown incoming fields never erase existing values, and the
// pipeline status always comes from the existing record: acquisition must
// not downgrade a status a user has set.
func merge(existing, incoming *model.CompanyRecord) *model.CompanyRecord {
	out := *existing

	if incoming.SiretSiege != "" {
		out.SiretSiege = incoming.SiretSiege
	}
	if incoming.Name != "" {
		out.Name = incoming.Name
	}
	if incoming.LegalForm != "" {
		out.LegalForm = incoming.LegalForm
	}
	if incoming.Address != "" {
		out.Address = incoming.Address
	}
	if incoming.Email != "" {
		out.Email = incoming.Email
	}
	if incoming.Phone != "" {
		out.Phone = incoming.Phone
	}
	if incoming.VATNumber != "" {
		out.VATNumber = incoming.VATNumber
	}
	if incoming.Revenue != nil {
		out.Revenue = incoming.Revenue
	}
	if incoming.NetResult != nil {
		out.NetResult = incoming.NetResult
	}
	if incoming.ShareCapital != nil {
		out.ShareCapital = incoming.ShareCapital
	}
	if incoming.Headcount != nil {
		out.Headcount = incoming.Headcount
	}
	if incoming.NAFCode != "" {
		out.NAFCode = incoming.NAFCode
	}
	if incoming.NAFLabel != "" {
		out.NAFLabel = incoming.NAFLabel
	}
	if incoming.Founded != nil {
		out.Founded = incoming.Founded
	}
	if incoming.PrincipalOfficer != "" {
		out.PrincipalOfficer = incoming.PrincipalOfficer
	}
	if len(incoming.Officers) > 0 {
		out.Officers = incoming.Officers
	}
	if incoming.ProspectionScore != nil {
		out.ProspectionScore = incoming.ProspectionScore
		out.ScoreDetails = incoming.ScoreDetails
	}
	if incoming.SourceLink != "" {
		out.SourceLink = incoming.SourceLink
	}
	if incoming.LastScrapedAt != nil {
		out.LastScrapedAt = incoming.LastScrapedAt
	}

	return &out
}

// financialsChanged reports whether a merge moved any field the scorer
// reads, in which case the stored score no longer describes the record.
func financialsChanged(before, after *model.CompanyRecord) bool {
	return !eqFloat(before.Revenue, after.Revenue) ||
		!eqFloat(before.NetResult, after.NetResult) ||
		!eqFloat(before.ShareCapital, after.ShareCapital) ||
		!eqInt(before.Headcount, after.Headcount)
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
