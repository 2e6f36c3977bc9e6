package template

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoActiveTemplate is returned when an event has no active templates to
// match against.
var ErrNoActiveTemplate = errors.New("template: no active template for event")

// MatchRequest describes what the caller wants the contract rendered with.
// Tier and language are both optional; scoring handles their absence.
type MatchRequest struct {
	TierID   *string
	Language Language
}

// Matcher picks the best-fit active template for a tier/language request.
type Matcher struct {
	store *Store
}

func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// Match fetches the event's active templates and returns the highest-scoring
// candidate.
func (m *Matcher) Match(ctx context.Context, eventID string, req MatchRequest) (Template, error) {
	if eventID == "" {
		return Template{}, fmt.Errorf("template: match requires event id")
	}

	all, err := m.store.ListByEvent(ctx, eventID)
	if err != nil {
		return Template{}, err
	}

	active := all[:0]
	for _, tpl := range all {
		if tpl.IsActive {
			active = append(active, tpl)
		}
	}

	return PickBest(active, req)
}

// PickBest scores each candidate (+4 tier match, +2 language match, +1
// default flag) and returns the highest. Ties prefer the first default-flagged
// candidate, then the first candidate in fetch order. Deterministic for a
// given candidate slice and request.
func PickBest(candidates []Template, req MatchRequest) (Template, error) {
	if len(candidates) == 0 {
		return Template{}, ErrNoActiveTemplate
	}

	best := 0
	bestScore := -1
	for i, tpl := range candidates {
		score := Score(tpl, req)
		switch {
		case score > bestScore:
			best, bestScore = i, score
		case score == bestScore && tpl.IsDefault && !candidates[best].IsDefault:
			best = i
		}
	}

	return candidates[best], nil
}

// Score computes one candidate's fit for the request.
func Score(tpl Template, req MatchRequest) int {
	score := 0
	if req.TierID != nil && tpl.TierID != nil && *tpl.TierID == *req.TierID {
		score += 4
	}
	if req.Language != "" && tpl.Language == req.Language {
		score += 2
	}
	if tpl.IsDefault {
		score++
	}
	return score
}
