package agent

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/catalog"
	"github.com/fyrsmithlabs/workflowd/internal/store"
)

// PatternAgentName is the stage identifier for pattern discovery.
const PatternAgentName = "pattern-discovery"

// ownerPattern tags store entries written by this agent.
const ownerPattern = "pattern-agent"

// PatternAgent scores the goal against the pattern catalog and writes the
// single best match to the shared store. A goal that matches nothing still
// succeeds with the first catalog pattern at confidence 0; low confidence is
// a signal for downstream consumers, not a hard stop.
type PatternAgent struct {
	catalog *catalog.Catalog
	store   *store.Store
	logger  *zap.Logger
}

// NewPatternAgent creates a pattern discovery agent.
func NewPatternAgent(cat *catalog.Catalog, s *store.Store, logger *zap.Logger) *PatternAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternAgent{catalog: cat, store: s, logger: logger.Named("pattern-agent")}
}

// Name implements Agent.
func (a *PatternAgent) Name() string { return PatternAgentName }

// Initialize implements Agent. The catalog is loaded at construction, so
// there is nothing left to prepare.
func (a *PatternAgent) Initialize() error { return nil }

// Shutdown implements Agent.
func (a *PatternAgent) Shutdown() error { return nil }

// Execute scores the goal and stores the best PatternMatch.
func (a *PatternAgent) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return deadlineResult(start, err)
	}

	match := a.bestMatch(req.Goal)
	a.store.Set(StageKey(KeySelectedPattern, req.RequestID), match, ownerPattern, StageTTL)

	a.logger.Debug("selected pattern",
		zap.String("request_id", req.RequestID),
		zap.String("pattern_id", match.PatternID),
		zap.Float64("confidence", match.Confidence),
		zap.Strings("matched_keywords", match.MatchedKeywords))

	return Result{
		Success:         true,
		Data:            match,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		TokensUsed:      estimateTokens(req.Goal, match.Description),
	}
}

// bestMatch returns the highest-confidence pattern for the goal. Ties keep
// the earlier catalog entry, making selection deterministic.
func (a *PatternAgent) bestMatch(goal string) PatternMatch {
	terms := tokenize(goal)
	patterns := a.catalog.Patterns()

	best := toMatch(patterns[0], 0, nil)
	for _, p := range patterns {
		confidence, matched := scorePattern(p, terms, goal)
		if confidence > best.Confidence {
			best = toMatch(p, confidence, matched)
		}
	}
	return best
}

// scorePattern computes keyword overlap strength in [0,1]. Each matched
// catalog keyword contributes equally; a whole-name phrase match adds a
// bonus so "send a slack notification" beats patterns sharing one keyword.
func scorePattern(p catalog.Pattern, terms map[string]struct{}, goal string) (float64, []string) {
	if len(p.Keywords) == 0 {
		return 0, nil
	}

	var matched []string
	for _, kw := range p.Keywords {
		if _, ok := terms[strings.ToLower(kw)]; ok {
			matched = append(matched, kw)
		}
	}
	confidence := float64(len(matched)) / float64(len(p.Keywords))

	if strings.Contains(strings.ToLower(goal), strings.ToLower(p.Name)) {
		confidence += 0.3
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence, matched
}

func toMatch(p catalog.Pattern, confidence float64, matched []string) PatternMatch {
	if matched == nil {
		matched = []string{}
	}
	return PatternMatch{
		PatternID:       p.ID,
		PatternName:     p.Name,
		Description:     p.Description,
		Confidence:      confidence,
		MatchedKeywords: matched,
		SuggestedNodes:  p.SuggestedNodes,
	}
}

// tokenize splits a goal into lowercase terms. Control characters and
// punctuation are treated as separators so pathological input degrades to
// an empty term set instead of breaking matching.
func tokenize(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			terms[strings.ToLower(b.String())] = struct{}{}
			b.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return terms
}
