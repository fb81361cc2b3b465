package glossary

import "strings"

// Line is the segment list for one line of text. Break holds the line-break
// sequence that followed the line in the input ("\n" or "\r\n"); it is empty for
// the last line.
type Line struct {
	Segments []Segment `json:"segments"`
	Break    string    `json:"break,omitempty"`
}

// Text reassembles the line content without its break.
func (l Line) Text() string {
	var sb strings.Builder
	for _, seg := range l.Segments {
		sb.WriteString(seg.Content)
	}
	return sb.String()
}

// Document is an annotated text body.
type Document struct {
	Lines []Line `json:"lines"`
}

// Flatten returns every segment in order with break markers between lines.
func (d Document) Flatten() []Segment {
	out := make([]Segment, 0, len(d.Lines)*2)
	for _, line := range d.Lines {
		out = append(out, line.Segments...)
		if line.Break != "" {
			out = append(out, Break(line.Break))
		}
	}
	return out
}

// Text reconstructs the annotated input exactly.
func (d Document) Text() string {
	var sb strings.Builder
	for _, seg := range d.Flatten() {
		sb.WriteString(seg.Content)
	}
	return sb.String()
}

// Terms counts annotated segments.
func (d Document) Terms() int {
	n := 0
	for _, line := range d.Lines {
		for _, seg := range line.Segments {
			if seg.IsTerm() {
				n++
			}
		}
	}
	return n
}

// Annotator splits text into segments against one dictionary. The zero value and a
// nil *Annotator annotate nothing.
type Annotator struct {
	dict    *Dictionary
	matcher Matcher
}

// NewAnnotator compiles a matcher for dict. An empty dictionary yields an annotator
// that never builds or consults a matcher.
func NewAnnotator(dict *Dictionary) (*Annotator, error) {
	if dict.Len() == 0 {
		return &Annotator{dict: dict}, nil
	}
	m, err := Compile(dict)
	if err != nil {
		return nil, err
	}
	return &Annotator{dict: dict, matcher: m}, nil
}

// NewAnnotatorWithMatcher pairs a dictionary with an already compiled matcher. The
// matcher must have been compiled from a dictionary with the same term set.
func NewAnnotatorWithMatcher(dict *Dictionary, m Matcher) *Annotator {
	if dict.Len() == 0 {
		m = nil
	}
	return &Annotator{dict: dict, matcher: m}
}

// Dictionary returns the dictionary the annotator was built with.
func (a *Annotator) Dictionary() *Dictionary {
	if a == nil {
		return nil
	}
	return a.dict
}

// Line segments a single line. line must not contain "\n". An empty line yields an
// empty (non-nil) slice.
func (a *Annotator) Line(line string) []Segment {
	if line == "" {
		return []Segment{}
	}
	if a == nil || a.matcher == nil {
		return []Segment{Plain(line)}
	}

	var segments []Segment
	cursor := 0
	for cursor < len(line) {
		m, ok := a.matcher.Next(line, cursor)
		if !ok {
			break
		}
		def, found := a.dict.Lookup(m.Key)
		if !found {
			// Matcher and dictionary disagree; keep the text plain and move on.
			segments = appendPlain(segments, line[cursor:m.End])
			cursor = m.End
			continue
		}
		segments = appendPlain(segments, line[cursor:m.Start])
		segments = append(segments, Term(line[m.Start:m.End], def))
		cursor = m.End
	}
	segments = appendPlain(segments, line[cursor:])
	return segments
}

// appendPlain adds text as a plain segment, merging with a preceding plain segment.
func appendPlain(segments []Segment, text string) []Segment {
	if text == "" {
		return segments
	}
	if n := len(segments); n > 0 && segments[n-1].Kind == KindText {
		segments[n-1].Content += text
		return segments
	}
	return append(segments, Plain(text))
}

// Annotate splits text on line breaks and segments every line. Empty text yields a
// document with no lines.
func (a *Annotator) Annotate(text string) Document {
	raw := SplitLines(text)
	lines := make([]Line, len(raw))
	for i, rl := range raw {
		lines[i] = Line{Segments: a.Line(rl.Content), Break: rl.Break}
	}
	return Document{Lines: lines}
}

// RawLine is one line of unsegmented text and the break sequence that followed it.
type RawLine struct {
	Content string
	Break   string
}

// SplitLines splits text on "\n". A "\r" directly before "\n" is treated as part of
// the break so CRLF input round-trips. "A\n\nB" yields "A", "", "B".
func SplitLines(text string) []RawLine {
	if text == "" {
		return nil
	}

	parts := strings.Split(text, "\n")
	lines := make([]RawLine, len(parts))
	last := len(parts) - 1
	for i, part := range parts {
		if i == last {
			lines[i] = RawLine{Content: part}
			continue
		}
		if strings.HasSuffix(part, "\r") {
			lines[i] = RawLine{Content: strings.TrimSuffix(part, "\r"), Break: "\r\n"}
			continue
		}
		lines[i] = RawLine{Content: part, Break: "\n"}
	}
	return lines
}

// Annotate is a convenience for one-off calls: merge sources and annotate text.
func Annotate(text string, sources ...Source) (Document, error) {
	a, err := NewAnnotator(Merge(sources...))
	if err != nil {
		return Document{}, err
	}
	return a.Annotate(text), nil
}
