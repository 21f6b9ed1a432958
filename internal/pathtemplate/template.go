// Package pathtemplate compiles operator-authored path templates such as
//
//	Images/W<wave_number>/<plant_qr_code>/<frame_number>.png
//
// into anchored matchers that capture catalog fields from a relative path.
package pathtemplate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
)

// ErrEmptyTemplate is returned when the template has no content
var ErrEmptyTemplate = errors.New("path template is empty")

// placeholderRegex matches <placeholder> tokens in templates
var placeholderRegex = regexp.MustCompile(`<([^<>/]*)>`)

// UnknownPlaceholderError is returned when a template names a field outside the catalog
type UnknownPlaceholderError struct {
	Name string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unrecognized placeholder <%s> (allowed: %s)",
		e.Name, strings.Join(fields.ExtractableNames(), ", "))
}

// Captures maps field name to the raw text captured for it
type Captures map[string]string

// Matcher matches relative paths against a compiled template
type Matcher struct {
	template string
	re       *regexp.Regexp
	fields   []string
	// groups maps each capture group index to the field it captures.
	// A field repeated in the template owns several groups.
	groups map[int]string
}

// Compile turns a template into a Matcher in a single pass over its placeholders
func Compile(template string) (*Matcher, error) {
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	normalized := filepath2Slash(template)

	var b strings.Builder
	b.WriteString("^")

	var order []string
	seen := make(map[string]bool)
	groups := make(map[int]string)
	group := 0
	last := 0

	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(normalized, -1) {
		name := normalized[loc[2]:loc[3]]
		f, ok := fields.Lookup(name)
		if !ok || !f.Extractable {
			return nil, &UnknownPlaceholderError{Name: name}
		}

		b.WriteString(regexp.QuoteMeta(normalized[last:loc[0]]))
		group++
		fmt.Fprintf(&b, "(%s)", f.Pattern())
		groups[group] = name
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(normalized[last:]))
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile template %q: %w", template, err)
	}

	return &Matcher{
		template: template,
		re:       re,
		fields:   order,
		groups:   groups,
	}, nil
}

// Match applies the matcher to a relative path. The second return value is false
// when the path does not fit the template, which is not an error at this layer.
func (m *Matcher) Match(relPath string) (Captures, bool) {
	sub := m.re.FindStringSubmatch(filepath2Slash(relPath))
	if sub == nil {
		return nil, false
	}

	captures := make(Captures, len(m.fields))
	for i := 1; i < len(sub); i++ {
		name := m.groups[i]
		if prev, ok := captures[name]; ok && prev != sub[i] {
			// a repeated placeholder must capture the same text everywhere
			return nil, false
		}
		captures[name] = sub[i]
	}
	return captures, true
}

// Fields returns the placeholder names in the order they first appear
func (m *Matcher) Fields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

// Template returns the source template
func (m *Matcher) Template() string {
	return m.template
}

// String returns the compiled expression
func (m *Matcher) String() string {
	return m.re.String()
}

// filepath2Slash normalizes both separator styles so templates and paths
// authored on either platform compare equal.
func filepath2Slash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
