package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/jonathan/site-generator/internal/llm"
	"github.com/jonathan/site-generator/internal/prompts"
	"github.com/jonathan/site-generator/internal/types"
)

// Gap-fill tuning.
const (
	DefaultFillThreshold = 70
	// DefaultFillBonus is added to the score after a fill instead of
	// re-scoring the record.
	DefaultFillBonus = 15
)

// GapFiller asks for marketing copy missing from a low-scoring record.
type GapFiller struct {
	client    llm.Client
	tier      llm.ModelTier
	threshold int
	bonus     int
	logger    arbor.ILogger
}

// NewGapFiller creates a gap-filler with the default threshold and bonus.
func NewGapFiller(client llm.Client, logger arbor.ILogger) *GapFiller {
	return &GapFiller{
		client:    client,
		tier:      llm.TierLite,
		threshold: DefaultFillThreshold,
		bonus:     DefaultFillBonus,
		logger:    logger,
	}
}

// NeedsFill reports whether rec scores below the fill threshold.
func (g *GapFiller) NeedsFill(rec *types.BusinessRecord) bool {
	return rec != nil && rec.DataQuality.Score < g.threshold
}

// Gaps lists the fillable fields rec leaves empty.
func Gaps(rec *types.BusinessRecord) []string {
	var gaps []string
	if rec.Tagline == "" {
		gaps = append(gaps, "tagline")
	}
	if rec.DescriptionShort == "" {
		gaps = append(gaps, "description_short")
	}
	if rec.DescriptionLong == "" {
		gaps = append(gaps, "description_long")
	}
	if rec.Category == "" {
		gaps = append(gaps, "category")
	}
	if len(rec.Services) == 0 {
		gaps = append(gaps, "services")
	}
	if len(rec.UniqueSellingPoints) == 0 {
		gaps = append(gaps, "unique_selling_points")
	}
	return gaps
}

type gapFillPromptData struct {
	BusinessName  string
	Category      string
	MissingFields string
	Record        string
}

// Fill makes one generation call for the record's gaps and merges the answer.
// It never fails: any error returns rec unchanged. rec itself is not modified.
func (g *GapFiller) Fill(ctx context.Context, rec *types.BusinessRecord) *types.BusinessRecord {
	if !g.NeedsFill(rec) {
		return rec
	}

	fields := Gaps(rec)
	if len(fields) == 0 {
		fields = FillableFields
	}
	recordJSON, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		g.logger.Warn().Err(err).Msg("Gap fill skipped: record encode failed")
		return rec
	}
	prompt, err := prompts.Render("extraction.yaml", "gap-fill", gapFillPromptData{
		BusinessName:  rec.BusinessName,
		Category:      rec.Category,
		MissingFields: strings.Join(fields, ", "),
		Record:        string(recordJSON),
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("Gap fill skipped: prompt render failed")
		return rec
	}

	text, err := g.client.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Gap fill call failed; keeping extracted record")
		return rec
	}
	var fill map[string]any
	if err := llm.DecodeJSONObject(text, &fill); err != nil {
		g.logger.Warn().Err(err).Msg("Gap fill response unparseable; keeping extracted record")
		return rec
	}

	merged, changed, err := MergeRecord(rec, fill)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Gap fill merge failed; keeping extracted record")
		return rec
	}

	// Fixed bonus rather than a re-assessment of the merged record.
	merged.DataQuality.Score = min(100, rec.DataQuality.Score+g.bonus)
	merged.DataQuality.GapFilled = true
	merged.DataQuality.MissingCritical = pruneFilled(merged, merged.DataQuality.MissingCritical)
	merged.DataQuality.MissingOptional = pruneFilled(merged, merged.DataQuality.MissingOptional)

	g.logger.Info().
		Str("business", rec.BusinessName).
		Strs("filled", changed).
		Int("score_before", rec.DataQuality.Score).
		Int("score_after", merged.DataQuality.Score).
		Msg("Gap fill merged")
	return merged
}

// pruneFilled drops fillable field names that are no longer empty.
func pruneFilled(rec *types.BusinessRecord, missing []string) []string {
	stillEmpty := map[string]bool{}
	for _, f := range Gaps(rec) {
		stillEmpty[f] = true
	}
	fillable := map[string]bool{}
	for _, f := range FillableFields {
		fillable[f] = true
	}

	out := missing[:0:0]
	for _, f := range missing {
		if fillable[f] && !stillEmpty[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
