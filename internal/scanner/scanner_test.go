package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Parse([]byte, Request) []domain.Item { return nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubAdapter{name: "hackernews"})
	reg.Register(stubAdapter{name: "blog"})

	adapter, err := reg.Resolve("hackernews")
	require.NoError(t, err)
	assert.Equal(t, "hackernews", adapter.Name())

	_, err = reg.Resolve("missing")
	require.Error(t, err)

	assert.Equal(t, []string{"blog", "hackernews"}, reg.Names())
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"selector": "article a", "empty": ""}}
	assert.Equal(t, "article a", req.Option("selector", "a[href]"))
	assert.Equal(t, "x", req.Option("empty", "x"))
	assert.Equal(t, "y", req.Option("missing", "y"))
}
