package service

import (
	"html"
	"regexp"
	"strings"
)

type ITextService interface {
	RemoveTags(input string) string
	RemoveLinks(input string) string
	ReduceToLength(input string, length int) string
	ClearAndReduce(input string, length int) string
}

// TextService sanitizes supplier-provided copy before it enters the catalog.
// Supplier descriptions routinely arrive as HTML with embedded links.
type TextService struct{}

func NewTextService() *TextService {
	return &TextService{}
}

var (
	tagRe  = regexp.MustCompile(`<[^>]*>`)
	linkRe = regexp.MustCompile(`https?://\S+`)
	wsRe   = regexp.MustCompile(`\s+`)
)

func (ts *TextService) RemoveTags(input string) string {
	return tagRe.ReplaceAllString(html.UnescapeString(input), " ")
}

func (ts *TextService) RemoveLinks(input string) string {
	return linkRe.ReplaceAllString(input, "")
}

// ReduceToLength cuts on word boundaries so titles never end mid-word.
func (ts *TextService) ReduceToLength(input string, length int) string {
	if len(input) <= length {
		return input
	}

	var builder strings.Builder
	words := strings.Fields(input)
	totalLength := 0

	for i, word := range words {
		if totalLength+len(word) > length {
			break
		}

		if i > 0 {
			builder.WriteString(" ")
			totalLength++
		}

		builder.WriteString(word)
		totalLength += len(word)
	}

	return builder.String()
}

func (ts *TextService) ClearAndReduce(input string, length int) string {
	cleaned := ts.RemoveLinks(ts.RemoveTags(input))
	cleaned = strings.TrimSpace(wsRe.ReplaceAllString(cleaned, " "))
	return ts.ReduceToLength(cleaned, length)
}
