package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const githubTrendingFixture = `
<div>
  <article class="Box-row">
    <h2 class="h3 lh-condensed">
      <a href="/acme/agent-swarm" class="Link">
        <span class="text-normal">acme /</span>
        agent-swarm
      </a>
    </h2>
    <p class="col-9 color-fg-muted my-1 pr-4">
      Distributed multi-agent orchestration for LLMs
    </p>
    <div class="f6 color-fg-muted mt-2">
      <span class="d-inline-block ml-0 mr-3">
        <span itemprop="programmingLanguage">Python</span>
      </span>
      <a href="/acme/agent-swarm/stargazers" class="Link--muted d-inline-block mr-3">
        <svg></svg>
        12,345
      </a>
      <span class="d-inline-block float-sm-right">
        1,024 stars today
      </span>
    </div>
  </article>
  <article class="Box-row">
    <h2><a href="/solo/tool">solo / tool</a></h2>
  </article>
</div>`

func TestGitHubTrendingAdapterParse(t *testing.T) {
	t.Parallel()

	req := scanner.Request{Source: "GitHub Trending", Category: domain.CategoryGitHub}
	items := GitHubTrendingAdapter{}.Parse([]byte(githubTrendingFixture), req)
	require.Len(t, items, 2)

	repo := items[0]
	assert.Equal(t, "https://github.com/acme/agent-swarm", repo.ID)
	assert.Equal(t, "acme/agent-swarm", repo.Title)
	assert.Equal(t, "Distributed multi-agent orchestration for LLMs", repo.Summary)
	assert.Equal(t, "Python", repo.Attr(domain.AttrLanguage))
	assert.Equal(t, "12345", repo.Attr(domain.AttrStars))
	assert.Equal(t, "1024", repo.Attr(domain.AttrStarsToday))

	assert.Equal(t, "https://github.com/solo/tool", items[1].ID)
	assert.Empty(t, items[1].Attr(domain.AttrStars))
}

func TestGitHubTrendingAdapterSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	html := `<article class="Box-row"><h2><a href="/just-owner">x</a></h2></article>
	<article class="Box-row"><h2>no link</h2></article>`
	assert.Empty(t, GitHubTrendingAdapter{}.Parse([]byte(html), scanner.Request{}))
}
