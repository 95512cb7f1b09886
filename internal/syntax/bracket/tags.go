package bracket

import (
	"errors"
	"strings"

	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/syntax/iterator"
)

// ErrNoTagTypes is returned by MatchingTags when the matcher was built
// without tag token types.
var ErrNoTagTypes = errors.New("grammar declares no tag token types")

// TagTypes names the token types a markup grammar emits for tags.
type TagTypes struct {
	// Open is the "<" of an opening tag.
	Open string
	// EndOpen is the "</" of a closing tag.
	EndOpen string
	// Close is the ">" or "/>" ending either kind of tag.
	Close string
	// Name is the tag name.
	Name string
}

// Tag is one markup tag.
type Tag struct {
	Name      string
	End       bool
	SelfClose bool
	Range     document.Range
}

// TagPair is an opening tag and the closing tag that balances it.
type TagPair struct {
	Open  Tag
	Close Tag
}

// scanTags collects every complete tag in the document in order.
func (m *Matcher) scanTags() []Tag {
	var tags []Tag
	it := iterator.New(m.src, 0, 0)
	tok, ok := it.CurrentToken()
	if !ok {
		tok, ok = it.StepForward()
	}

	var cur *Tag
	for ; ok; tok, ok = it.StepForward() {
		switch tok.Type {
		case m.tags.Open, m.tags.EndOpen:
			// An unterminated tag is dropped when the next one starts.
			cur = &Tag{
				End:   tok.Type == m.tags.EndOpen,
				Range: document.Range{Start: it.CurrentTokenPosition()},
			}
		case m.tags.Name:
			if cur != nil && cur.Name == "" {
				cur.Name = tok.Value
			}
		case m.tags.Close:
			if cur == nil {
				continue
			}
			cur.Range.End = it.CurrentTokenRange().End
			cur.SelfClose = strings.HasSuffix(tok.Value, "/>")
			if cur.Name != "" {
				tags = append(tags, *cur)
			}
			cur = nil
		}
	}
	return tags
}

// MatchingTags finds the tag containing pos and the tag that balances it.
// Self-closing tags and unbalanced tags have no match.
func (m *Matcher) MatchingTags(pos document.Position) (TagPair, bool, error) {
	if m.tags == nil {
		return TagPair{}, false, ErrNoTagTypes
	}

	tags := m.scanTags()
	k := -1
	for i, t := range tags {
		if t.Range.Contains(pos) {
			k = i
			break
		}
	}
	if k < 0 || tags[k].SelfClose {
		return TagPair{}, false, nil
	}

	target := tags[k]
	depth := 1
	if !target.End {
		for _, t := range tags[k+1:] {
			if t.Name != target.Name || t.SelfClose {
				continue
			}
			if t.End {
				depth--
			} else {
				depth++
			}
			if depth == 0 {
				return TagPair{Open: target, Close: t}, true, nil
			}
		}
		return TagPair{}, false, nil
	}

	for i := k - 1; i >= 0; i-- {
		t := tags[i]
		if t.Name != target.Name || t.SelfClose {
			continue
		}
		if t.End {
			depth++
		} else {
			depth--
		}
		if depth == 0 {
			return TagPair{Open: t, Close: target}, true, nil
		}
	}
	return TagPair{}, false, nil
}
