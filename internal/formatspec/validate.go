package formatspec

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pathtemplate"
)

// ValidationError describes one structural problem at a key path such as accessionSource.sheet
type ValidationError struct {
	Path    string
	Line    int
	Message string
}

func (e ValidationError) Error() string {
	where := e.Path
	if where == "" {
		where = "(document)"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", where, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// ValidationErrors collects every problem found in one document
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation error(s):\n  %s", len(e), strings.Join(msgs, "\n  "))
}

const (
	keyPathTemplate    = "pathTemplate"
	keyFixedValues     = "fixedValues"
	keyAccessionSource = "accessionSource"
)

var accessionKeys = []string{"location", "sheet", "idColumn", "nameColumn"}

type validator struct {
	errs ValidationErrors
}

func (v *validator) add(path string, node *yaml.Node, format string, args ...interface{}) {
	ve := ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
	if node != nil {
		ve.Line = node.Line
	}
	v.errs = append(v.errs, ve)
}

// mapping returns the key/value pairs of a mapping node, reporting duplicates
func (v *validator) mapping(path string, node *yaml.Node) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if _, dup := out[key.Value]; dup {
			v.add(join(path, key.Value), key, "duplicate key")
			continue
		}
		out[key.Value] = value
	}
	return out
}

// scalar returns the text of a non-null scalar node
func (v *validator) scalar(path string, node *yaml.Node) (string, bool) {
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		v.add(path, node, "must be a scalar value")
		return "", false
	}
	return node.Value, true
}

func validate(doc *yaml.Node, spec *Spec) ValidationErrors {
	v := &validator{}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		v.add("", nil, "document is empty")
		return v.errs
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		v.add("", root, "top level must be a mapping")
		return v.errs
	}

	top := v.mapping("", root)
	for key, value := range top {
		switch key {
		case keyPathTemplate:
			v.pathTemplate(value, spec)
		case keyFixedValues:
			v.fixedValues(value, spec)
		case keyAccessionSource:
			v.accessionSource(value, spec)
		default:
			v.add(key, value, "unknown key")
		}
	}

	if _, ok := top[keyPathTemplate]; !ok {
		v.add(keyPathTemplate, root, "required key is missing")
	}
	if _, ok := top[keyAccessionSource]; !ok {
		v.add(keyAccessionSource, root, "required key is missing")
	}

	sortErrors(v.errs)
	return v.errs
}

func (v *validator) pathTemplate(node *yaml.Node, spec *Spec) {
	s, ok := v.scalar(keyPathTemplate, node)
	if !ok {
		return
	}
	if _, err := pathtemplate.Compile(s); err != nil {
		v.add(keyPathTemplate, node, "%v", err)
		return
	}
	spec.PathTemplate = s
}

func (v *validator) fixedValues(node *yaml.Node, spec *Spec) {
	if node.Kind != yaml.MappingNode {
		v.add(keyFixedValues, node, "must be a mapping of field name to value")
		return
	}
	for name, value := range v.mapping(keyFixedValues, node) {
		path := join(keyFixedValues, name)
		if _, ok := fields.Lookup(name); !ok {
			v.add(path, value, "unknown field (allowed: %s)", strings.Join(fields.Names(), ", "))
			continue
		}
		raw, ok := v.scalar(path, value)
		if !ok {
			continue
		}
		if err := spec.Fixed.Set(name, raw); err != nil {
			v.add(path, value, "%v", err)
			continue
		}
		spec.FixedValues[name] = raw
	}
}

func (v *validator) accessionSource(node *yaml.Node, spec *Spec) {
	if node.Kind != yaml.MappingNode {
		v.add(keyAccessionSource, node, "must be a mapping")
		return
	}
	values := v.mapping(keyAccessionSource, node)
	for key, value := range values {
		if !contains(accessionKeys, key) {
			v.add(join(keyAccessionSource, key), value, "unknown key")
		}
	}

	get := func(key string) string {
		path := join(keyAccessionSource, key)
		value, ok := values[key]
		if !ok {
			v.add(path, node, "required key is missing")
			return ""
		}
		s, ok := v.scalar(path, value)
		if !ok {
			return ""
		}
		if strings.TrimSpace(s) == "" {
			v.add(path, value, "must not be empty")
		}
		return s
	}

	spec.AccessionSource = AccessionSource{
		Location:   get("location"),
		Sheet:      get("sheet"),
		IDColumn:   get("idColumn"),
		NameColumn: get("nameColumn"),
	}
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// sortErrors orders errors by line then path so reports are stable across map iteration
func sortErrors(errs ValidationErrors) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Line != errs[j].Line {
			return errs[i].Line < errs[j].Line
		}
		return errs[i].Path < errs[j].Path
	})
}
