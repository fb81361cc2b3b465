package glossary

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyDictionary is returned by Compile when there are no terms to match.
var ErrEmptyDictionary = errors.New("glossary: dictionary has no terms")

// Match is one term occurrence inside a line, as byte offsets into that line.
type Match struct {
	Start int
	End   int
	Key   string // lowercased dictionary key
}

// Matcher locates dictionary terms in a single line of text.
type Matcher interface {
	// Next returns the leftmost valid occurrence starting at or after from. Among
	// terms starting at that position the longest one wins.
	Next(line string, from int) (Match, bool)
}

// regexpMatcher uses one case-insensitive alternation to jump to the next position
// where any term occurs, then resolves the longest term at that position that also
// satisfies the word-boundary rule. Resolution looks up case-folded prefixes in
// byFold, once per distinct term length, so its cost does not grow with the
// number of terms.
type regexpMatcher struct {
	re      *regexp.Regexp
	byFold  map[string]string // folded term -> dictionary key
	lengths []int             // distinct term lengths in runes, descending
}

// Compile builds a Matcher for the dictionary's terms.
func Compile(dict *Dictionary) (Matcher, error) {
	keys := dict.Keys()
	if len(keys) == 0 {
		return nil, ErrEmptyDictionary
	}

	sort.SliceStable(keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, len(keys))
	byFold := make(map[string]string, len(keys))
	var lengths []int
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)

		folded := foldString(k)
		if _, exists := byFold[folded]; !exists {
			byFold[folded] = k
		}
		n := utf8.RuneCountInString(k)
		if len(lengths) == 0 || lengths[len(lengths)-1] != n {
			lengths = append(lengths, n)
		}
	}

	re, err := regexp.Compile("(?i)(?:" + strings.Join(quoted, "|") + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to compile glossary pattern (%d terms): %w", len(keys), err)
	}

	return &regexpMatcher{re: re, byFold: byFold, lengths: lengths}, nil
}

func (m *regexpMatcher) Next(line string, from int) (Match, bool) {
	for from < len(line) {
		loc := m.re.FindStringIndex(line[from:])
		if loc == nil {
			return Match{}, false
		}

		start := from + loc[0]
		if isWordRuneBefore(line, start) {
			from = start + runeWidth(line, start)
			continue
		}

		if match, ok := m.longestAt(line, start); ok {
			return match, true
		}
		from = start + runeWidth(line, start)
	}
	return Match{}, false
}

// longestAt tries each term length in descending order at start.
func (m *regexpMatcher) longestAt(line string, start int) (Match, bool) {
	maxLen := m.lengths[0]

	// ends[i] and foldEnds[i] are the byte offsets in line and folded after i+1 runes.
	ends := make([]int, 0, maxLen)
	foldEnds := make([]int, 0, maxLen)
	folded := make([]byte, 0, maxLen*utf8.UTFMax)

	pos := start
	for len(ends) < maxLen && pos < len(line) {
		r, size := utf8.DecodeRuneInString(line[pos:])
		pos += size
		folded = utf8.AppendRune(folded, foldRune(r))
		ends = append(ends, pos)
		foldEnds = append(foldEnds, len(folded))
	}

	for _, n := range m.lengths {
		if n > len(ends) {
			continue
		}
		key, ok := m.byFold[string(folded[:foldEnds[n-1]])]
		if !ok {
			continue
		}
		end := ends[n-1]
		if isWordRuneAt(line, end) {
			continue
		}
		return Match{Start: start, End: end, Key: key}, true
	}
	return Match{}, false
}

// foldRune maps r to the smallest rune in its simple case-folding orbit, so two
// runes are equal under simple folding exactly when their foldRune values are.
func foldRune(r rune) rune {
	least := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < least {
			least = f
		}
	}
	return least
}

func foldString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(foldRune(r))
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordRuneBefore(line string, pos int) bool {
	if pos <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(line[:pos])
	return isWordRune(r)
}

func isWordRuneAt(line string, pos int) bool {
	if pos >= len(line) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line[pos:])
	return isWordRune(r)
}

func runeWidth(line string, pos int) int {
	_, size := utf8.DecodeRuneInString(line[pos:])
	if size == 0 {
		return 1
	}
	return size
}
