package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
)

const scoringSystemPrompt = `You are an M&A analyst specialized in French accounting firms.
Rate the acquisition and sale potential of the company described by the user.
Respond with a single JSON object: {"buy_score": 0-100, "sell_score": 0-100,
"justification": "...", "positive_factors": [...], "negative_factors": [...]}.`

// LLMScorer asks Claude for a score and falls back to the heuristic on any
// failure. A reconcile pass never fails because scoring did.
type LLMScorer struct {
	client    sdk.Client
	model     string
	maxTokens int64
	fallback  *HeuristicScorer
}

// NewLLM creates an LLMScorer from config.
func NewLLM(cfg config.AnthropicConfig) *LLMScorer {
	return &LLMScorer{
		client:    sdk.NewClient(option.WithAPIKey(cfg.Key)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		fallback:  NewHeuristic(),
	}
}

// Score queries the model; on error or unparseable output it defers to the
// heuristic scorer.
func (l *LLMScorer) Score(ctx context.Context, rec *model.CompanyRecord) (*model.ScoreDetails, error) {
	details, err := l.query(ctx, rec)
	if err != nil {
		zap.L().Warn("scorer: llm scoring failed, using heuristic",
			zap.String("siren", rec.Siren),
			zap.Error(err),
		)
		return l.fallback.Score(ctx, rec)
	}
	return details, nil
}

func (l *LLMScorer) query(ctx context.Context, rec *model.CompanyRecord) (*model.ScoreDetails, error) {
	msg, err := l.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(l.model),
		MaxTokens: l.maxTokens,
		System:    []sdk.TextBlockParam{{Text: scoringSystemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(describeCompany(rec))),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "scorer: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	var parsed struct {
		BuyScore        float64  `json:"buy_score"`
		SellScore       float64  `json:"sell_score"`
		Justification   string   `json:"justification"`
		PositiveFactors []string `json:"positive_factors"`
		NegativeFactors []string `json:"negative_factors"`
	}
	raw := extractJSON(text.String())
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, eris.Wrap(err, "scorer: parse model output")
	}

	d := &model.ScoreDetails{
		BuyScore:        clamp(parsed.BuyScore),
		SellScore:       clamp(parsed.SellScore),
		Justification:   parsed.Justification,
		PositiveFactors: parsed.PositiveFactors,
		NegativeFactors: parsed.NegativeFactors,
	}
	d.GlobalScore = clamp(d.BuyScore*0.4 + d.SellScore*0.6)
	return d, nil
}

func describeCompany(rec *model.CompanyRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s (SIREN %s)\n", rec.Name, rec.Siren)
	if rec.LegalForm != "" {
		fmt.Fprintf(&b, "Legal form: %s\n", rec.LegalForm)
	}
	if rec.Revenue != nil {
		fmt.Fprintf(&b, "Revenue: %.0f EUR\n", *rec.Revenue)
	}
	if rec.NetResult != nil {
		fmt.Fprintf(&b, "Net result: %.0f EUR\n", *rec.NetResult)
	}
	if rec.Headcount != nil {
		fmt.Fprintf(&b, "Headcount: %d\n", *rec.Headcount)
	}
	if rec.ShareCapital != nil {
		fmt.Fprintf(&b, "Share capital: %.0f EUR\n", *rec.ShareCapital)
	}
	if rec.NAFLabel != "" {
		fmt.Fprintf(&b, "Activity: %s\n", rec.NAFLabel)
	}
	return b.String()
}

// extractJSON pulls the first top-level JSON object out of a model reply
// that may wrap it in prose or a code fence.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
