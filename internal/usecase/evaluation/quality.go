package evaluation

import (
	"math"
	"regexp"
	"strings"

	"github.com/futig/medrag/internal/entity"
)

var qualityWord = regexp.MustCompile(`\b[a-zA-Z]{5,}\b`)

// RetrievalQuality is the share of distinct question words of five or more
// ASCII letters that occur in the retrieved text, rounded to 3 decimals.
func RetrievalQuality(question string, texts []string) float64 {
	words := distinct(qualityWord.FindAllString(strings.ToLower(question), -1))
	if len(words) == 0 {
		return 0
	}

	corpus := strings.ToLower(strings.Join(texts, " "))

	matched := 0
	for _, w := range words {
		if strings.Contains(corpus, w) {
			matched++
		}
	}

	return round3(float64(matched) / float64(len(words)))
}

// retrievedTexts prefers full passages and falls back to previews for
// answers that came over HTTP.
func retrievedTexts(result *entity.AnswerResult) []string {
	if len(result.Passages) > 0 {
		texts := make([]string, 0, len(result.Passages))
		for _, p := range result.Passages {
			texts = append(texts, p.Text)
		}
		return texts
	}
	return result.RetrievalPreview
}

func distinct(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
