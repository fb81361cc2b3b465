// Package glossary locates glossary terms inside translated prose and splits the
// text into plain and annotated segments for tooltip rendering.
package glossary

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Pair is a single glossary entry as stored in the list-shaped glossary columns
// ([{"term": ..., "explain": ...}]).
type Pair struct {
	Term    string `json:"term"`
	Explain string `json:"explain"`
}

// Source is one glossary in its canonical ordered form. Both stored shapes (list of
// pairs, object keyed by term) are reduced to a Source before any merging happens.
type Source []Pair

// FromPairs wraps list-shaped entries as a Source.
func FromPairs(pairs []Pair) Source {
	return Source(pairs)
}

// FromMap converts a term->definition map into a Source. Go maps carry no order, so
// keys are sorted to keep merges deterministic.
func FromMap(m map[string]string) Source {
	if len(m) == 0 {
		return nil
	}

	terms := make([]string, 0, len(m))
	for term := range m {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	src := make(Source, 0, len(terms))
	for _, term := range terms {
		src = append(src, Pair{Term: term, Explain: m[term]})
	}
	return src
}

// ParseSource decodes a raw jsonb glossary value in either shape. Object key order is
// preserved. Definitions are coerced with the same rule for both shapes: strings are
// used verbatim, numbers and booleans keep their JSON text, and null, objects and
// arrays are skipped. Only malformed JSON or a top-level value that is neither an
// object nor an array is reported as an error.
func ParseSource(raw []byte) (Source, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		return parseObjectSource(trimmed)
	case '[':
		return parseListSource(trimmed)
	default:
		return nil, fmt.Errorf("glossary must be a JSON object or array, got %q", string(trimmed[:1]))
	}
}

func parseObjectSource(raw []byte) (Source, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read glossary object: %w", err)
	}

	var src Source
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read glossary term: %w", err)
		}
		term, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected glossary key %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read definition for %q: %w", term, err)
		}

		if def, ok := coerceDefinition(value); ok {
			src = append(src, Pair{Term: term, Explain: def})
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to close glossary object: %w", err)
	}
	return src, nil
}

func parseListSource(raw []byte) (Source, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		// Lists with non-object elements fall back to element-wise decoding.
		var loose []json.RawMessage
		if err2 := json.Unmarshal(raw, &loose); err2 != nil {
			return nil, fmt.Errorf("failed to decode glossary list: %w", err2)
		}
		items = make([]map[string]json.RawMessage, 0, len(loose))
		for _, elem := range loose {
			var item map[string]json.RawMessage
			if json.Unmarshal(elem, &item) == nil {
				items = append(items, item)
			}
		}
	}

	src := make(Source, 0, len(items))
	for _, item := range items {
		var term string
		if err := json.Unmarshal(item["term"], &term); err != nil {
			continue
		}

		value, ok := item["explain"]
		if !ok {
			value = item["definition"]
		}
		if def, ok := coerceDefinition(value); ok {
			src = append(src, Pair{Term: term, Explain: def})
		}
	}
	return src, nil
}

func coerceDefinition(value json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return "", false
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case 'n', '{', '[':
		return "", false
	default:
		// numbers, true, false
		return string(trimmed), true
	}
}

// Key is the case-insensitive identity of a term.
func Key(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Dictionary is a merged, case-insensitive glossary. It is immutable once built and
// safe for concurrent use. A nil *Dictionary behaves as an empty one.
type Dictionary struct {
	defs    map[string]string
	entries []Pair
}

// Builder accumulates entries in priority order. The first definition added for
// a term (compared case-insensitively) wins and is never overwritten. Terms that
// are empty after trimming are discarded.
type Builder struct {
	d *Dictionary
}

func NewBuilder() *Builder {
	return &Builder{d: &Dictionary{defs: make(map[string]string)}}
}

// Add inserts p and reports whether it was kept. A kept entry's term is trimmed.
func (b *Builder) Add(p Pair) (Pair, bool) {
	display := strings.TrimSpace(p.Term)
	if display == "" {
		return Pair{}, false
	}
	key := Key(display)
	if _, exists := b.d.defs[key]; exists {
		return Pair{}, false
	}
	kept := Pair{Term: display, Explain: p.Explain}
	b.d.defs[key] = p.Explain
	b.d.entries = append(b.d.entries, kept)
	return kept, true
}

// Dictionary returns the entries added so far. The builder must not be used
// afterwards.
func (b *Builder) Dictionary() *Dictionary {
	d := b.d
	b.d = nil
	return d
}

// Merge folds sources, highest priority first, into one Dictionary.
func Merge(sources ...Source) *Dictionary {
	b := NewBuilder()
	for _, src := range sources {
		for _, p := range src {
			b.Add(p)
		}
	}
	return b.Dictionary()
}

// Less orders terms alphabetically, ignoring case.
func Less(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

// Len reports the number of distinct terms.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.defs)
}

// Lookup returns the definition for term, ignoring case.
func (d *Dictionary) Lookup(term string) (string, bool) {
	if d == nil {
		return "", false
	}
	def, ok := d.defs[Key(term)]
	return def, ok
}

// Keys returns the lowercased terms in merge order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		keys = append(keys, strings.ToLower(e.Term))
	}
	return keys
}

// Entries returns the merged entries with the display form of the first source that
// introduced each term, sorted alphabetically (case-insensitive). Used for glossary
// listings; matching never looks at the display form.
func (d *Dictionary) Entries() []Pair {
	if d == nil {
		return nil
	}
	out := make([]Pair, len(d.entries))
	copy(out, d.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i].Term, out[j].Term)
	})
	return out
}

// Fingerprint identifies the term set. Two dictionaries with the same terms compile
// to equivalent matchers, whatever their definitions. Each key is length-prefixed,
// so no term set can collide with a different split of the same bytes.
func (d *Dictionary) Fingerprint() string {
	keys := d.Keys()
	sort.Strings(keys)

	h := sha256.New()
	var buf []byte
	for _, k := range keys {
		buf = binary.AppendUvarint(buf[:0], uint64(len(k)))
		buf = append(buf, k...)
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
