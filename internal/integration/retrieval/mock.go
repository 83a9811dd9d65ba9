package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/futig/medrag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const mockSource = "data/medical_book.pdf"

var mockCorpus = []entity.Passage{
	{
		Text:    "Type 2 diabetes is characterised by insulin resistance and relative insulin deficiency. Classic symptoms include polyuria, polydipsia, fatigue and blurred vision.",
		Source:  mockSource,
		Locator: entity.PageLocator(12),
	},
	{
		Text:    "Metformin is the first-line medication for type 2 diabetes. Lifestyle changes such as weight loss and regular exercise improve glycaemic control.",
		Source:  mockSource,
		Locator: entity.PageLocator(45),
	},
	{
		Text:    "Hypertension is a persistently raised arterial blood pressure, usually defined as readings above 140/90 mmHg on repeated measurement.",
		Source:  mockSource,
		Locator: entity.PageLocator(78),
	},
	{
		Text:    "Asthma is a chronic inflammatory disease of the airways causing wheezing, breathlessness and chest tightness, often triggered by allergens.",
		Source:  mockSource,
		Locator: entity.PageLocator(103),
	},
	{
		Text:    "Iron deficiency anaemia presents with fatigue, pallor and reduced exercise tolerance. Treatment is oral iron supplementation.",
		Source:  mockSource,
		Locator: entity.PageLocator(156),
	},
	{
		Text:   "Influenza is an acute viral infection of the respiratory tract with fever, myalgia and cough. Annual vaccination is recommended.",
		Source: mockSource,
	},
}

// MockRetriever ranks a small built-in corpus by keyword overlap.
type MockRetriever struct {
	corpus []entity.Passage
	logger *zap.Logger
}

func NewMockRetriever(logger *zap.Logger) *MockRetriever {
	return &MockRetriever{
		corpus: mockCorpus,
		logger: logger,
	}
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) ([]entity.Passage, error) {
	ctxzap.Info(ctx, "[MOCK] retrieving passages", zap.Int("k", k))

	if k <= 0 {
		return []entity.Passage{}, nil
	}

	terms := tokenize(query)

	type scored struct {
		passage entity.Passage
		score   int
	}

	hits := make([]scored, 0, len(m.corpus))
	for _, p := range m.corpus {
		words := tokenize(p.Text)
		score := 0
		for term := range terms {
			if _, ok := words[term]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{passage: p, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	passages := make([]entity.Passage, 0, min(k, len(hits)))
	for _, h := range hits {
		if len(passages) == k {
			break
		}
		passages = append(passages, h.passage)
	}

	return passages, nil
}

func (m *MockRetriever) Ping(context.Context) error {
	return nil
}

func (m *MockRetriever) Close() error {
	return nil
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "what": {}, "are": {}, "for": {}, "with": {},
	"how": {}, "does": {}, "which": {}, "from": {}, "that": {}, "this": {},
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
