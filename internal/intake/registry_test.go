package intake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScamRegistry_NormalizesEntries(t *testing.T) {
	registry, err := NewScamRegistry(
		[]string{"  Scam.Example  ", ""},
		[]string{"Bad@Example.COM"},
		nil,
	)
	require.NoError(t, err)

	d, a, p := registry.Counts()
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, a)
	assert.Equal(t, 0, p)

	rule, ok := registry.Match("x@scam.example", "scam.example")
	assert.True(t, ok)
	assert.Equal(t, "domain:scam.example", rule)

	rule, ok = registry.Match("bad@example.com", "example.com")
	assert.True(t, ok)
	assert.Equal(t, RuleAddress, rule)
}

func TestNewScamRegistry_InvalidPattern(t *testing.T) {
	_, err := NewScamRegistry(nil, nil, []PatternRule{{Name: "broken", Expression: "(["}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	_, err = NewScamRegistry(nil, nil, []PatternRule{{Name: "empty"}})
	require.Error(t, err)
}

func TestScamRegistry_MatchOrder(t *testing.T) {
	registry, err := NewScamRegistry(
		[]string{"example.com"},
		[]string{"a@example.com"},
		[]PatternRule{{Name: "any", Expression: ".*"}},
	)
	require.NoError(t, err)

	rule, ok := registry.Match("a@example.com", "example.com")
	assert.True(t, ok)
	assert.Equal(t, "domain:example.com", rule)

	rule, ok = registry.Match("a@other.com", "other.com")
	assert.True(t, ok)
	assert.Equal(t, "pattern:any", rule)
}

func TestScamRegistry_UnnamedPatternUsesExpression(t *testing.T) {
	registry, err := NewScamRegistry(nil, nil, []PatternRule{{Expression: `^spam`}})
	require.NoError(t, err)

	rule, ok := registry.Match("spammer@example.com", "example.com")
	assert.True(t, ok)
	assert.Equal(t, "pattern:^spam", rule)
}

func TestLoadScamRegistry(t *testing.T) {
	doc := `
domains:
  - scam.example
addresses:
  - Known@Bad.example
patterns:
  - name: numbered_gmail
    expression: '\d{4,}@gmail\.com$'
`
	registry, err := LoadScamRegistry(strings.NewReader(doc))
	require.NoError(t, err)

	d, a, p := registry.Counts()
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, p)

	_, ok := registry.Match("known@bad.example", "bad.example")
	assert.True(t, ok)

	rule, ok := registry.Match("sale2024@gmail.com", "gmail.com")
	assert.True(t, ok)
	assert.Equal(t, "pattern:numbered_gmail", rule)

	_, ok = registry.Match("sale24@gmail.com", "gmail.com")
	assert.False(t, ok)
}

func TestLoadScamRegistry_EmptyDocument(t *testing.T) {
	registry, err := LoadScamRegistry(strings.NewReader(""))
	require.NoError(t, err)

	d, a, p := registry.Counts()
	assert.Zero(t, d+a+p)
}

func TestLoadScamRegistry_Malformed(t *testing.T) {
	_, err := LoadScamRegistry(strings.NewReader("domains: [unterminated"))
	assert.Error(t, err)
}

func TestLoadScamRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domains: [file.example]\n"), 0o600))

	registry, err := LoadScamRegistryFile(path)
	require.NoError(t, err)
	_, ok := registry.Match("x@file.example", "file.example")
	assert.True(t, ok)

	_, err = LoadScamRegistryFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultScamRegistry(t *testing.T) {
	registry := DefaultScamRegistry()
	d, a, p := registry.Counts()
	assert.Positive(t, d)
	assert.Positive(t, a)
	assert.Equal(t, 2, p)
	assert.Contains(t, registry.String(), "2 patterns")
}
