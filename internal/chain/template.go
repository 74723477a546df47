package chain

import (
	"fmt"
	"io"
	"sort"

	"github.com/valyala/fasttemplate"
)

// Template is a prompt with {name} placeholders.
type Template struct {
	source    string
	tmpl      *fasttemplate.Template
	variables []string
}

// ParseTemplate parses source and records the placeholders it uses.
func ParseTemplate(source string) (*Template, error) {
	tmpl, err := fasttemplate.NewTemplate(source, "{", "}")
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", source, err)
	}

	seen := make(map[string]struct{})
	tmpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		seen[tag] = struct{}{}
		return 0, nil
	})

	variables := make([]string, 0, len(seen))
	for name := range seen {
		variables = append(variables, name)
	}
	sort.Strings(variables)

	return &Template{source: source, tmpl: tmpl, variables: variables}, nil
}

// Variables returns the sorted placeholder names.
func (t *Template) Variables() []string {
	return append([]string(nil), t.variables...)
}

func (t *Template) String() string {
	return t.source
}

// Render substitutes values into the template. Every placeholder must have a value.
func (t *Template) Render(values map[string]string) (string, error) {
	return t.tmpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		v, ok := values[tag]
		if !ok {
			return 0, fmt.Errorf("missing value for {%s}", tag)
		}
		return io.WriteString(w, v)
	})
}
