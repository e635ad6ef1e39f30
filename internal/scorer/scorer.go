// Package scorer computes the 0-100 prospection score used to rank companies.
package scorer

import (
	"context"
	"fmt"

	"github.com/Clerks303/Scraping/internal/model"
)

// Scorer rates a company's M&A prospection potential.
type Scorer interface {
	Score(ctx context.Context, rec *model.CompanyRecord) (*model.ScoreDetails, error)
}

// HeuristicScorer scores from revenue, headcount, and profitability alone.
// It is the default and the fallback when the LLM scorer is unavailable.
type HeuristicScorer struct{}

// NewHeuristic creates a HeuristicScorer.
func NewHeuristic() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score derives buy and sell subscores and a weighted global score.
// High revenue and headcount mark a potential acquirer; small, unprofitable
// firms lean toward the sell side.
func (h *HeuristicScorer) Score(_ context.Context, rec *model.CompanyRecord) (*model.ScoreDetails, error) {
	d := &model.ScoreDetails{
		BuyScore:  50,
		SellScore: 50,
	}

	var revenue float64
	if rec.Revenue != nil {
		revenue = *rec.Revenue
	}
	switch {
	case revenue > 20_000_000:
		d.BuyScore += 20
		d.PositiveFactors = append(d.PositiveFactors, "revenue above 20M EUR")
	case revenue > 0 && revenue < 5_000_000:
		d.SellScore += 10
		d.NegativeFactors = append(d.NegativeFactors, "revenue below 5M EUR")
	}

	var headcount int
	if rec.Headcount != nil {
		headcount = *rec.Headcount
	}
	switch {
	case headcount > 50:
		d.BuyScore += 10
		d.PositiveFactors = append(d.PositiveFactors, "headcount above 50")
	case headcount > 0 && headcount < 10:
		d.SellScore += 10
		d.NegativeFactors = append(d.NegativeFactors, "headcount below 10")
	}

	if rec.NetResult != nil && *rec.NetResult > 0 {
		d.BuyScore += 10
		d.PositiveFactors = append(d.PositiveFactors, "positive net result")
	} else if rec.NetResult != nil {
		d.SellScore += 15
		d.NegativeFactors = append(d.NegativeFactors, "negative or zero net result")
	}

	d.BuyScore = clamp(d.BuyScore)
	d.SellScore = clamp(d.SellScore)
	d.GlobalScore = clamp(d.BuyScore*0.4 + d.SellScore*0.6)
	d.Justification = fmt.Sprintf("revenue %.1fM EUR, %d employees", revenue/1_000_000, headcount)

	return d, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
