package priorart

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var technicalTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\w*(?:system|method|apparatus|device|process|algorithm|protocol)\b`),
	regexp.MustCompile(`\b\w*(?:network|database|interface|module|engine|framework)\b`),
	regexp.MustCompile(`\b\w*(?:analysis|processing|detection|recognition|optimization)\b`),
}

var functionTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:detect|analyze|process|generate|create|optimize|improve|enhance|reduce)\w*\b`),
	regexp.MustCompile(`\b(?:calculate|determine|identify|classify|predict|estimate|measure)\w*\b`),
	regexp.MustCompile(`\b(?:control|manage|monitor|track|observe|record|store|retrieve)\w*\b`),
}

var problemIndicators = []string{"problem", "challenge", "difficulty", "limitation", "issue", "need"}

var commonWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// Slashes survive so compound fields such as "Software/Computing" stay intact.
var queryNoiseRe = regexp.MustCompile(`[^\p{L}\p{N}_\s/-]`)

const problemQueryPrefix = "method system apparatus"

// GenerateQueries applies the fixed strategy order and returns 1-5 distinct
// cleaned queries. It fails only when every strategy produced nothing.
func GenerateQueries(description, technicalField string, keywords []string) ([]SearchQuery, error) {
	raw := make([]SearchQuery, 0, MaxGeneratedQueries)

	if terms := extractTechnicalTerms(description); len(terms) > 0 {
		raw = append(raw, SearchQuery{Text: technicalField + " " + strings.Join(firstN(terms, 5), " "), Strategy: StrategyTechnicalTerms})
	}
	if terms := extractProblemTerms(description); len(terms) > 0 {
		raw = append(raw, SearchQuery{Text: problemQueryPrefix + " " + strings.Join(firstN(terms, 3), " "), Strategy: StrategyProblemContext})
	}
	if terms := extractFunctionTerms(description); len(terms) > 0 {
		fieldHead := strings.SplitN(technicalField, "/", 2)[0]
		raw = append(raw, SearchQuery{Text: fieldHead + " " + strings.Join(firstN(terms, 3), " "), Strategy: StrategyFunction})
	}
	if len(keywords) > 0 {
		raw = append(raw, SearchQuery{Text: strings.Join(firstN(keywords, 5), " "), Strategy: StrategyUserKeywords})
	}
	raw = append(raw, SearchQuery{Text: technicalField, Strategy: StrategyBroadField})

	out := make([]SearchQuery, 0, len(raw))
	seen := map[string]struct{}{}
	for _, q := range raw {
		q.Text = CleanQuery(q.Text)
		if q.Text == "" {
			continue
		}
		if _, dup := seen[q.Text]; dup {
			continue
		}
		seen[q.Text] = struct{}{}
		out = append(out, q)
		if len(out) == MaxGeneratedQueries {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoQueries
	}
	return out, nil
}

// CleanQuery strips everything but word characters, whitespace, hyphens and
// slashes, collapses whitespace and bounds the result to MaxQueryChars.
func CleanQuery(q string) string {
	cleaned := strings.Join(strings.Fields(queryNoiseRe.ReplaceAllString(q, " ")), " ")
	if utf8.RuneCountInString(cleaned) <= MaxQueryChars {
		return cleaned
	}
	words := firstN(strings.Fields(cleaned), MaxQueryWords)
	for len(words) > 1 && utf8.RuneCountInString(strings.Join(words, " ")) > MaxQueryChars {
		words = words[:len(words)-1]
	}
	cleaned = strings.Join(words, " ")
	if utf8.RuneCountInString(cleaned) > MaxQueryChars {
		cleaned = string([]rune(cleaned)[:MaxQueryChars])
	}
	return cleaned
}

func extractTechnicalTerms(description string) []string {
	lower := strings.ToLower(description)
	seen := map[string]struct{}{}
	terms := []string{}
	for _, re := range technicalTermPatterns {
		for _, m := range re.FindAllString(lower, -1) {
			if _, common := commonWords[m]; common || utf8.RuneCountInString(m) <= 3 {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			terms = append(terms, m)
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(terms[i]), utf8.RuneCountInString(terms[j])
		if li != lj {
			return li > lj
		}
		return terms[i] < terms[j]
	})
	return firstN(terms, 10)
}

func extractProblemTerms(description string) []string {
	words := strings.Fields(strings.ToLower(description))
	seen := map[string]struct{}{}
	terms := []string{}
	for i, w := range words {
		if !containsAny(w, problemIndicators) {
			continue
		}
		start := max(0, i-2)
		end := min(len(words), i+3)
		for _, ctxWord := range words[start:end] {
			if utf8.RuneCountInString(ctxWord) <= 3 {
				continue
			}
			if _, ok := seen[ctxWord]; ok {
				continue
			}
			seen[ctxWord] = struct{}{}
			terms = append(terms, ctxWord)
		}
	}
	return firstN(terms, 5)
}

func extractFunctionTerms(description string) []string {
	lower := strings.ToLower(description)
	seen := map[string]struct{}{}
	terms := []string{}
	for _, re := range functionTermPatterns {
		for _, m := range re.FindAllString(lower, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			terms = append(terms, m)
		}
	}
	sort.Strings(terms)
	return firstN(terms, 5)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
