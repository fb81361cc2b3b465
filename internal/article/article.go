// Package article lays out translated article bodies: paragraph splitting,
// inline image placement and plain-text extraction for metadata.
package article

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// Paragraphs splits a body on blank lines, trimming each paragraph and
// dropping the empty ones. Single newlines stay inside their paragraph.
func Paragraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	parts := paragraphBreak.Split(content, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// ImagePositions spreads images evenly between paragraphs. The result maps a
// paragraph index to the images shown after it. Nothing is placed unless
// there are images and more than one paragraph.
func ImagePositions(paragraphs, images int) map[int][]int {
	positions := make(map[int][]int)
	if images <= 0 || paragraphs <= 1 {
		return positions
	}

	for i := 0; i < images; i++ {
		pos := paragraphs * (i + 1) / (images + 1)
		positions[pos] = append(positions[pos], i)
	}
	return positions
}

// PlainText strips markup from a translated body and collapses whitespace.
// Text without markup passes through with whitespace collapsed.
func PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return strings.Join(strings.Fields(content), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.Join(strings.Fields(content), " ")
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Excerpt returns at most maxRunes of the plain text, cut on a word boundary
// when one is available.
func Excerpt(content string, maxRunes int) string {
	text := PlainText(content)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	cut := string(runes[:maxRunes])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
