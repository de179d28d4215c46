package faqsearch

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

type stubStore struct {
	candidates []domain.FAQ
	byCategory []domain.FAQ
	err        error

	gotLimit    int
	gotKeywords []string
	categoryHit bool
}

func (s *stubStore) ListCandidates(_ context.Context, _ domain.Category, keywords []string, limit int) ([]domain.FAQ, error) {
	s.gotKeywords = keywords
	s.gotLimit = limit
	return s.candidates, s.err
}

func (s *stubStore) ListByCategory(_ context.Context, _ domain.Category, limit int) ([]domain.FAQ, error) {
	s.categoryHit = true
	s.gotLimit = limit
	return s.byCategory, s.err
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("My webhook is not delivering events")
	want := []string{"webhook", "delivering", "events"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got = ExtractKeywords("Help! 2024 bot-token, bot-token and app's ID?")
	want = []string{"bot-token", "app"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if got := ExtractKeywords("help me please"); len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
}

func TestScore(t *testing.T) {
	faq := domain.FAQ{
		Question: "Why is my webhook not receiving events?",
		Answer:   "Check the endpoint.",
		Category: domain.CategoryWebhooks,
	}
	got := Score(faq, []string{"webhook", "delivering", "events"}, domain.CategoryWebhooks)
	if got < 0.6 {
		t.Fatalf("score %.2f below 0.6", got)
	}

	popular := domain.FAQ{
		Question: "webhook events webhook",
		Answer:   "webhook events",
		Category: domain.CategoryWebhooks,
		Keywords: []string{"Webhook", "events"},
		Views:    50,
		Helpful:  10,
	}
	if got := Score(popular, []string{"webhook", "events"}, domain.CategoryWebhooks); got != 1 {
		t.Fatalf("score should be capped at 1, got %.2f", got)
	}
}

func TestFindRelevantRanksAndFilters(t *testing.T) {
	store := &stubStore{candidates: []domain.FAQ{
		{ID: 1, Question: "How do I rename my app?", Answer: "Open a request.", Category: domain.CategoryAppNameChange},
		{ID: 2, Question: "Webhook events are missing", Answer: "Verify the URL.", Category: domain.CategoryWebhooks},
		{ID: 3, Question: "Gateway intents", Answer: "Webhook delivery needs retries.", Category: domain.CategoryAPIGateway},
	}}
	s := NewSearcher(store, nil)

	got := s.FindRelevant(context.Background(), "My webhook is not delivering events", domain.CategoryWebhooks, 3)
	if store.gotLimit != 6 {
		t.Fatalf("expected candidate limit 6, got %d", store.gotLimit)
	}
	if len(got) != 1 || got[0].FAQ.ID != 2 {
		t.Fatalf("unexpected results: %+v", got)
	}
	if got[0].Score <= MinScore {
		t.Fatalf("returned result below threshold: %.2f", got[0].Score)
	}
}

func TestFindRelevantFallsBackToCategory(t *testing.T) {
	store := &stubStore{byCategory: []domain.FAQ{{ID: 9, Category: domain.CategoryWebhooks}}}
	s := NewSearcher(store, nil)

	got := s.FindRelevant(context.Background(), "help me please", domain.CategoryWebhooks, 3)
	if !store.categoryHit || len(got) != 1 || got[0].FAQ.ID != 9 {
		t.Fatalf("expected category fallback, got %+v", got)
	}
}

func TestFindRelevantSwallowsErrors(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	s := NewSearcher(store, nil)

	if got := s.FindRelevant(context.Background(), "webhook events", domain.CategoryWebhooks, 3); len(got) != 0 {
		t.Fatalf("expected empty result on error, got %+v", got)
	}
}
