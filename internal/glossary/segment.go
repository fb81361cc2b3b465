package glossary

// Kind tags a Segment.
type Kind string

const (
	KindText  Kind = "text"
	KindTerm  Kind = "term"
	KindBreak Kind = "break"
)

// Segment is the unit of annotated output. Text segments carry inert content, term
// segments carry the matched text in its original casing plus the definition, and
// break segments (only produced by Document.Flatten) carry the line-break sequence.
type Segment struct {
	Kind       Kind   `json:"type"`
	Content    string `json:"content"`
	Definition string `json:"definition,omitempty"`
}

// Plain creates a text segment.
func Plain(content string) Segment {
	return Segment{Kind: KindText, Content: content}
}

// Term creates an annotated segment.
func Term(content, definition string) Segment {
	return Segment{Kind: KindTerm, Content: content, Definition: definition}
}

// Break creates a line-break marker.
func Break(seq string) Segment {
	return Segment{Kind: KindBreak, Content: seq}
}

func (s Segment) IsTerm() bool  { return s.Kind == KindTerm }
func (s Segment) IsBreak() bool { return s.Kind == KindBreak }
