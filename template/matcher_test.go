package template

import (
	"errors"
	"testing"
)

func tierPtr(s string) *string { return &s }

func TestPickBestPrefersTierOverDefault(t *testing.T) {
	candidates := []Template{
		{ID: "tier-a-en", TierID: tierPtr("tier-a"), Language: LangEnglish},
		{ID: "default-en", TierID: tierPtr("tier-b"), Language: LangEnglish, IsDefault: true},
	}

	got, err := PickBest(candidates, MatchRequest{TierID: tierPtr("tier-a"), Language: LangEnglish})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	// tier + language (6) must beat language + default (3)
	if got.ID != "tier-a-en" {
		t.Errorf("picked %s", got.ID)
	}
}

func TestPickBestDefaultBonusOutscoresPlainCandidate(t *testing.T) {
	candidates := []Template{
		{ID: "plain-nb", Language: LangNorwegian},
		{ID: "default-nb", Language: LangNorwegian, IsDefault: true},
	}

	// language match alone scores 2; the default flag lifts the second
	// candidate to 3
	got, err := PickBest(candidates, MatchRequest{Language: LangNorwegian})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got.ID != "default-nb" {
		t.Errorf("default bonus must win, picked %s", got.ID)
	}
}

func TestPickBestEqualScoreTieKeepsFirstDefault(t *testing.T) {
	// the +1 default bonus makes default and non-default scores differ in
	// parity, so genuine ties only happen within one class
	candidates := []Template{
		{ID: "default-1", Language: LangNorwegian, IsDefault: true},
		{ID: "default-2", Language: LangNorwegian, IsDefault: true},
	}

	got, err := PickBest(candidates, MatchRequest{Language: LangNorwegian})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if got.ID != "default-1" {
		t.Errorf("equal-score defaults must keep fetch order, picked %s", got.ID)
	}
}

func TestPickBestTieWithoutDefaultKeepsFetchOrder(t *testing.T) {
	candidates := []Template{
		{ID: "first", Language: LangEnglish},
		{ID: "second", Language: LangEnglish},
	}

	for i := 0; i < 10; i++ {
		got, err := PickBest(candidates, MatchRequest{Language: LangEnglish})
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if got.ID != "first" {
			t.Fatalf("iteration %d: picked %s, want first in fetch order", i, got.ID)
		}
	}
}

func TestPickBestNoCandidates(t *testing.T) {
	_, err := PickBest(nil, MatchRequest{Language: LangEnglish})
	if !errors.Is(err, ErrNoActiveTemplate) {
		t.Fatalf("expected ErrNoActiveTemplate, got %v", err)
	}
}

func TestScore(t *testing.T) {
	cases := []struct {
		name string
		tpl  Template
		req  MatchRequest
		want int
	}{
		{"full match", Template{TierID: tierPtr("a"), Language: LangEnglish, IsDefault: true},
			MatchRequest{TierID: tierPtr("a"), Language: LangEnglish}, 7},
		{"tier only", Template{TierID: tierPtr("a"), Language: LangNorwegian},
			MatchRequest{TierID: tierPtr("a"), Language: LangEnglish}, 4},
		{"language only", Template{Language: LangEnglish},
			MatchRequest{TierID: tierPtr("a"), Language: LangEnglish}, 2},
		{"default only", Template{Language: LangNorwegian, IsDefault: true},
			MatchRequest{Language: LangEnglish}, 1},
		{"no tier in request", Template{TierID: tierPtr("a"), Language: LangEnglish},
			MatchRequest{Language: LangEnglish}, 2},
		{"nothing", Template{Language: LangNorwegian}, MatchRequest{Language: LangEnglish}, 0},
	}
	for _, tc := range cases {
		if got := Score(tc.tpl, tc.req); got != tc.want {
			t.Errorf("%s: score = %d, want %d", tc.name, got, tc.want)
		}
	}
}
