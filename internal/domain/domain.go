// Package domain holds the records shared by the extraction, reporting and
// storage layers. Values are treated as immutable: helpers return copies.
package domain

// RecordKind is the store-side type discriminator.
type RecordKind string

const (
	KindDocument      RecordKind = "document"
	KindQuestionnaire RecordKind = "questionnaire"
	KindReport        RecordKind = "report"
)

func (k RecordKind) Valid() bool {
	switch k {
	case KindDocument, KindQuestionnaire, KindReport:
		return true
	default:
		return false
	}
}

// Document is a knowledge base entry. Text is stored alongside its embedding.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// RetrievedDocument is a Document ranked by similarity to a query vector.
type RetrievedDocument struct {
	Document
	Score float64 `json:"score"`
}

// Source is the citation form of a RetrievedDocument.
type Source struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

const SnippetChars = 300

// Snippet returns the first 300 characters of text, with an ellipsis when cut.
func Snippet(text string) string {
	r := []rune(text)
	if len(r) <= SnippetChars {
		return text
	}
	return string(r[:SnippetChars]) + "..."
}

// Truncate returns the first n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
