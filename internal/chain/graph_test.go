package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTemplate(t *testing.T, source string) *Template {
	t.Helper()
	tmpl, err := ParseTemplate(source)
	require.NoError(t, err)
	return tmpl
}

func TestParseTemplate(t *testing.T) {
	tmpl := mustTemplate(t, "その都市 {city} はどの国？回答は {language} で簡潔に。{city}")
	assert.Equal(t, []string{"city", "language"}, tmpl.Variables())

	out, err := tmpl.Render(map[string]string{"city": "京都", "language": "日本語"})
	require.NoError(t, err)
	assert.Equal(t, "その都市 京都 はどの国？回答は 日本語 で簡潔に。京都", out)

	_, err = tmpl.Render(map[string]string{"city": "京都"})
	assert.Error(t, err)
}

func TestNewGraph(t *testing.T) {
	city := Stage{Name: "city", Prompt: mustTemplate(t, "{person}"), Output: "city"}
	answer := Stage{Name: "answer", Prompt: mustTemplate(t, "{city} {language}"), Output: "answer"}

	g, err := NewGraph([]string{"person", "language"}, city, answer)
	require.NoError(t, err)
	assert.Equal(t, "answer", g.Output())
	assert.Len(t, g.Stages(), 2)

	s, ok := g.Stage("answer")
	require.True(t, ok)
	assert.Equal(t, []string{"city", "language"}, s.Inputs())
}

func TestNewGraph_Invalid(t *testing.T) {
	city := Stage{Name: "city", Prompt: mustTemplate(t, "{person}"), Output: "city"}
	answer := Stage{Name: "answer", Prompt: mustTemplate(t, "{city} {language}"), Output: "answer"}

	tests := []struct {
		name   string
		inputs []string
		stages []Stage
	}{
		{"no stages", []string{"person"}, nil},
		{"forward reference", []string{"person", "language"}, []Stage{answer, city}},
		{"missing input", []string{"person"}, []Stage{city, answer}},
		{"duplicate output", []string{"person", "language"}, []Stage{city, {Name: "again", Prompt: mustTemplate(t, "{person}"), Output: "city"}}},
		{"output shadows input", []string{"person"}, []Stage{{Name: "x", Prompt: mustTemplate(t, "{person}"), Output: "person"}}},
		{"duplicate name", []string{"person"}, []Stage{city, {Name: "city", Prompt: mustTemplate(t, "{person}"), Output: "other"}}},
		{"nil prompt", []string{"person"}, []Stage{{Name: "x", Output: "y"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.inputs, tt.stages...)
			assert.Error(t, err)
		})
	}
}

func TestScopeFor(t *testing.T) {
	city := Stage{Name: "city", Prompt: mustTemplate(t, "{person}"), Output: "city"}
	scope := scopeFor(city, map[string]string{"person": "Marie Curie", "language": "English"})
	assert.Equal(t, map[string]string{"person": "Marie Curie"}, scope)
}
