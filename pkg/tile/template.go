package tile

import (
	"fmt"
	"strings"

	"github.com/imkira/go-interpol"
)

// Segment is either a literal run of text or a named {placeholder}.
type Segment struct {
	Placeholder bool
	Value       string
}

func (s Segment) String() string {
	if s.Placeholder {
		return "{" + s.Value + "}"
	}
	return s.Value
}

// Template is a url or key pattern such as
// "https://tiles.example.org/world/{z}/{x}/{y}.pbf", held as an ordered list of
// literal and placeholder segments. Adjacent literals are always merged, so
// a literal segment is never followed by another literal.
type Template struct {
	raw      string
	segments []Segment
}

type TemplateParseError struct {
	Template string
	Offset   int
	Reason   string
}

func (e *TemplateParseError) Error() string {
	return fmt.Sprintf("invalid template %q at offset %d: %s", e.Template, e.Offset, e.Reason)
}

// TemplateMatchError is returned by Split when the marker does not occur in
// the template exactly once.
type TemplateMatchError struct {
	Template string
	Marker   string
	Count    int
}

func (e *TemplateMatchError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("template %q does not contain %q", e.Template, e.Marker)
	}
	return fmt.Sprintf("template %q contains %q %d times, expected once", e.Template, e.Marker, e.Count)
}

func ParseTemplate(s string) (*Template, error) {
	t := &Template{raw: s}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, Segment{Value: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, &TemplateParseError{Template: s, Offset: i, Reason: "unclosed placeholder"}
			}
			name := s[i+1 : i+1+end]
			if name == "" {
				return nil, &TemplateParseError{Template: s, Offset: i, Reason: "empty placeholder"}
			}
			if strings.ContainsAny(name, "{/") {
				return nil, &TemplateParseError{Template: s, Offset: i, Reason: "invalid placeholder name"}
			}
			flush()
			t.segments = append(t.segments, Segment{Placeholder: true, Value: name})
			i += end + 1
		case '}':
			return nil, &TemplateParseError{Template: s, Offset: i, Reason: "unmatched closing brace"}
		default:
			lit.WriteByte(s[i])
		}
	}
	flush()

	return t, nil
}

// MustParseTemplate is ParseTemplate for patterns known at compile time.
func MustParseTemplate(s string) *Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string {
	return t.raw
}

func (t *Template) Segments() []Segment {
	result := make([]Segment, len(t.segments))
	copy(result, t.segments)
	return result
}

// Placeholders returns the placeholder names in order of appearance.
func (t *Template) Placeholders() []string {
	var names []string
	for _, s := range t.segments {
		if s.Placeholder {
			names = append(names, s.Value)
		}
	}
	return names
}

// Split cuts the template around the single occurrence of marker. A literal
// at either end of the marker may be the tail (or head) of a longer literal
// in the template; everything else must match segment for segment.
func (t *Template) Split(marker *Template) (before, after string, err error) {
	ms := marker.segments
	if len(marker.Placeholders()) == 0 {
		return "", "", &TemplateParseError{Template: marker.raw, Reason: "marker has no placeholder"}
	}

	count := 0
	for i := 0; i+len(ms) <= len(t.segments); i++ {
		pre, post, ok := matchSegments(t.segments[i:i+len(ms)], ms)
		if !ok {
			continue
		}
		count++
		if count > 1 {
			continue
		}
		before = joinSegments(t.segments[:i]) + pre
		after = post + joinSegments(t.segments[i+len(ms):])
	}

	if count != 1 {
		return "", "", &TemplateMatchError{Template: t.raw, Marker: marker.raw, Count: count}
	}
	return before, after, nil
}

// Render substitutes every placeholder from values.
func (t *Template) Render(values map[string]string) (string, error) {
	for _, name := range t.Placeholders() {
		if _, ok := values[name]; !ok {
			return "", fmt.Errorf("template %q: no value for {%s}", t.raw, name)
		}
	}
	return interpol.WithMap(t.raw, values)
}

func matchSegments(segs, marker []Segment) (pre, post string, ok bool) {
	last := len(marker) - 1
	for j, m := range marker {
		s := segs[j]
		if s.Placeholder != m.Placeholder {
			return "", "", false
		}
		if m.Placeholder {
			if s.Value != m.Value {
				return "", "", false
			}
			continue
		}
		switch j {
		case 0:
			if !strings.HasSuffix(s.Value, m.Value) {
				return "", "", false
			}
			pre = strings.TrimSuffix(s.Value, m.Value)
		case last:
			if !strings.HasPrefix(s.Value, m.Value) {
				return "", "", false
			}
			post = strings.TrimPrefix(s.Value, m.Value)
		default:
			if s.Value != m.Value {
				return "", "", false
			}
		}
	}
	return pre, post, true
}

func joinSegments(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.String())
	}
	return b.String()
}
