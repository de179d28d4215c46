// Package faqsearch ranks FAQ entries against a ticket subject.
package faqsearch

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const (
	// DefaultLimit is how many FAQs are attached to an assistant reply.
	DefaultLimit = 3
	// MinScore is the relevance an FAQ must exceed to be returned.
	MinScore = 0.2
)

// CandidateStore loads FAQ candidates. Both lists are ordered by views then
// helpful votes, descending.
type CandidateStore interface {
	ListCandidates(ctx context.Context, category domain.Category, keywords []string, limit int) ([]domain.FAQ, error)
	ListByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.FAQ, error)
}

// Scored pairs an FAQ with its relevance in [0, 1].
type Scored struct {
	FAQ   domain.FAQ
	Score float64
}

// Searcher finds FAQs related to a ticket.
type Searcher struct {
	store  CandidateStore
	logger *zap.Logger
}

// NewSearcher creates a searcher over store.
func NewSearcher(store CandidateStore, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{store: store, logger: logger}
}

// FindRelevant returns at most limit FAQs scoring above MinScore, best first.
// When the subject has no usable keywords it falls back to the most viewed
// FAQs of the category. Lookup failures are logged and yield an empty list.
func (s *Searcher) FindRelevant(ctx context.Context, subject string, category domain.Category, limit int) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}

	keywords := ExtractKeywords(subject)
	if len(keywords) == 0 {
		faqs, err := s.store.ListByCategory(ctx, category, limit)
		if err != nil {
			s.logger.Error("faq category lookup failed", zap.Error(err), zap.String("category", string(category)))
			return nil
		}
		out := make([]Scored, 0, len(faqs))
		for _, f := range faqs {
			out = append(out, Scored{FAQ: f, Score: Score(f, keywords, category)})
		}
		return out
	}

	candidates, err := s.store.ListCandidates(ctx, category, keywords, limit*2)
	if err != nil {
		s.logger.Error("faq search failed", zap.Error(err), zap.Strings("keywords", keywords))
		return nil
	}

	scored := make([]Scored, 0, len(candidates))
	for _, f := range candidates {
		scored = append(scored, Scored{FAQ: f, Score: Score(f, keywords, category)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := scored[:0]
	for _, sc := range scored {
		if sc.Score > MinScore {
			out = append(out, sc)
		}
	}
	return out
}

// Score rates how well faq matches the keywords and category.
func Score(faq domain.FAQ, keywords []string, category domain.Category) float64 {
	var score float64
	if faq.Category == category {
		score += 0.4
	}

	question := strings.ToLower(faq.Question)
	answer := strings.ToLower(faq.Answer)
	stored := make(map[string]struct{}, len(faq.Keywords))
	for _, k := range faq.Keywords {
		stored[strings.ToLower(k)] = struct{}{}
	}

	for _, kw := range keywords {
		if strings.Contains(question, kw) {
			score += 0.2
		}
		if strings.Contains(answer, kw) {
			score += 0.1
		}
		if _, ok := stored[kw]; ok {
			score += 0.15
		}
	}

	if faq.Views > 10 {
		score += 0.05
	}
	if faq.Helpful > 5 {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}
	return score
}
