package answer

import "strings"

// Stop words ignored when checking whether a passage quotes the question
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "who": true, "how": true, "does": true,
}

// tokenizeAndFilter splits text into lowercased words without punctuation or stop words.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// containsAllQueryWords reports whether every significant word of query appears in passage.
func containsAllQueryWords(passage, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	passageWords := make(map[string]bool)
	for _, word := range tokenizeAndFilter(passage) {
		passageWords[word] = true
	}

	for _, qWord := range queryWords {
		if !passageWords[qWord] {
			return false
		}
	}
	return true
}
