package parser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

func blogFixture() string {
	long := strings.Repeat("Reasoning agents ", 8)
	return `
<nav><a href="/">Home</a><a href="/about/">About me</a><a href="#top">Back to the top of page</a></nav>
<article class="post-entry">
  <h2><a href="/posts/2025-10-01-agents/">LLM Powered Autonomous Agents</a></h2>
</article>
<article class="post-entry">
  <h2><a href="https://lilianweng.github.io/posts/2025-09-01-planning/">` + long + `</a></h2>
</article>
<article class="post-entry">
  <h2><a href="/posts/2025-10-01-agents/">LLM Powered Autonomous Agents (again)</a></h2>
</article>
<footer><a href="https://example.org/very/long/link">https://example.org/very/long/link</a></footer>`
}

func TestBlogAdapterParse(t *testing.T) {
	t.Parallel()

	req := scanner.Request{
		Source:   "Lil'Log",
		Category: domain.CategoryBlog,
		Endpoint: scanner.Endpoint{URL: "https://lilianweng.github.io/"},
	}

	items := BlogAdapter{}.Parse([]byte(blogFixture()), req)
	require.Len(t, items, 2)

	assert.Equal(t, "https://lilianweng.github.io/posts/2025-10-01-agents/", items[0].ID)
	assert.Equal(t, "LLM Powered Autonomous Agents", items[0].Title)
	assert.Equal(t, "Lil'Log", items[0].Source)

	assert.Equal(t, "https://lilianweng.github.io/posts/2025-09-01-planning/", items[1].ID)
	assert.LessOrEqual(t, utf8.RuneCountInString(items[1].Title), maxBlogTitleRunes)
}

func TestBlogAdapterSelectorOption(t *testing.T) {
	t.Parallel()

	req := scanner.Request{
		Category: domain.CategoryBlog,
		Endpoint: scanner.Endpoint{URL: "https://lilianweng.github.io/"},
		Options:  map[string]string{"selector": "footer a, nav a"},
	}

	// footer anchor looks like a URL and nav anchors are too short
	assert.Empty(t, BlogAdapter{}.Parse([]byte(blogFixture()), req))
}
