// Package prompt rewrites raw user prompts into richer generation prompts.
// Enhancement is best-effort: callers fall back to the raw prompt when it
// fails.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type EnhanceRequest struct {
	Prompt          string
	Style           string
	DurationSeconds int
	AspectRatio     string
}

type EnhanceResult struct {
	Prompt     string   `json:"prompt"`
	Notes      []string `json:"notes,omitempty"`
	Confidence float64  `json:"confidence"`
}

type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResult, error)
}

// styleDescriptors expand a named style into concrete visual direction.
var styleDescriptors = map[string]string{
	"cinematic":   "cinematic lighting, shallow depth of field, filmic color grade",
	"anime":       "hand-drawn anime style, bold linework, vibrant cel shading",
	"realistic":   "photorealistic detail, natural lighting, true-to-life textures",
	"stop-motion": "stop-motion animation, handcrafted miniature textures, subtle frame jitter",
	"watercolor":  "soft watercolor washes, bleeding pigment edges, paper grain",
}

// RuleEnhancer applies deterministic rewrite rules; it needs no network and
// never takes unbounded time.
type RuleEnhancer struct {
	titler cases.Caser
}

func NewRuleEnhancer() *RuleEnhancer {
	return &RuleEnhancer{titler: cases.Title(language.Und)}
}

func (e *RuleEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResult, error) {
	base := strings.TrimSpace(req.Prompt)
	if base == "" {
		return nil, errors.New("empty prompt")
	}

	parts := []string{base}
	notes := []string{}
	confidence := 0.5

	if style := strings.ToLower(strings.TrimSpace(req.Style)); style != "" {
		desc, ok := styleDescriptors[style]
		if !ok {
			desc = fmt.Sprintf("%s style", style)
		}
		parts = append(parts, desc)
		notes = append(notes, fmt.Sprintf("applied %s style direction", e.titler.String(style)))
		confidence += 0.15
	}

	if req.DurationSeconds > 0 {
		pacing := "a single continuous shot"
		if req.DurationSeconds > 8 {
			pacing = "an unhurried sequence of shots"
		}
		parts = append(parts, fmt.Sprintf("paced for %s over %d seconds", pacing, req.DurationSeconds))
		notes = append(notes, "added pacing guidance from requested duration")
		confidence += 0.1
	}

	if req.AspectRatio == "9:16" {
		parts = append(parts, "composed for vertical framing")
		notes = append(notes, "added vertical composition hint")
		confidence += 0.05
	}

	parts = append(parts, "high detail, smooth motion")
	notes = append(notes, "added quality suffix")
	confidence += 0.1
	if confidence > 0.95 {
		confidence = 0.95
	}

	return &EnhanceResult{
		Prompt:     strings.Join(parts, ", "),
		Notes:      notes,
		Confidence: confidence,
	}, nil
}

var _ Enhancer = (*RuleEnhancer)(nil)
