package priorart

import (
	"encoding/json"
	"regexp"
	"strings"
)

const providerTitleSuffix = " - Google Patents"

var patentIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`patents\.google\.com/patent/([A-Z]{2}\d+[A-Z]\d*)`),
	regexp.MustCompile(`patents\.google\.com/patent/([A-Z]{2,}\d+)`),
}

var patentOffices = map[string]string{
	"US": "USPTO",
	"EP": "EPO",
	"WO": "WIPO",
	"CN": "CNIPA",
	"JP": "JPO",
	"KR": "KIPO",
}

type searchItem struct {
	Title   string                     `json:"title"`
	Link    string                     `json:"link"`
	Snippet string                     `json:"snippet"`
	Pagemap map[string]json.RawMessage `json:"pagemap"`
}

// decodeCandidate turns one provider item into a PatentCandidate. Metadata
// blocks that do not decode as a list of objects are skipped.
func decodeCandidate(raw json.RawMessage) (PatentCandidate, error) {
	var item searchItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return PatentCandidate{}, err
	}
	c := PatentCandidate{
		Title:    item.Title,
		Snippet:  item.Snippet,
		URL:      item.Link,
		Metadata: map[string][]map[string]any{},
	}
	for name, blob := range item.Pagemap {
		var entries []map[string]any
		if err := json.Unmarshal(blob, &entries); err != nil {
			continue
		}
		c.Metadata[name] = entries
	}
	return c, nil
}

// ParseCandidate converts a raw hit into a PatentResult. It reports false
// when no patent identifier can be extracted from the hit's URL.
func ParseCandidate(c PatentCandidate) (PatentResult, bool) {
	id := ExtractPatentID(c.URL)
	if id == "" {
		return PatentResult{}, false
	}
	res := PatentResult{
		PatentID:       id,
		Title:          strings.TrimSpace(strings.ReplaceAll(c.Title, providerTitleSuffix, "")),
		Abstract:       clampRunes(c.Snippet, MaxAbstractChars),
		Inventors:      []string{},
		PatentOffice:   PatentOffice(id),
		Classification: []string{},
		URL:            c.URL,
	}
	for _, person := range c.Metadata["person"] {
		if name := strings.TrimSpace(str(person["name"])); name != "" {
			res.Inventors = append(res.Inventors, name)
		}
	}
	if orgs := c.Metadata["organization"]; len(orgs) > 0 {
		res.Assignee = strings.TrimSpace(str(orgs[0]["name"]))
	}
	if tags := c.Metadata["metatags"]; len(tags) > 0 {
		res.FilingDate = strings.TrimSpace(str(tags[0]["citation_patent_filing_date"]))
		res.PublicationDate = strings.TrimSpace(str(tags[0]["citation_patent_publication_date"]))
	}
	return res, true
}

// ExtractPatentID applies the office URL patterns in order; first match wins.
func ExtractPatentID(url string) string {
	for _, re := range patentIDPatterns {
		if m := re.FindStringSubmatch(url); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

func PatentOffice(patentID string) string {
	if len(patentID) < 2 {
		return "Unknown"
	}
	if office, ok := patentOffices[patentID[:2]]; ok {
		return office
	}
	return "Unknown"
}

func clampRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
