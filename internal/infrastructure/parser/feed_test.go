package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const arxivAtomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2510.12345v2</id>
    <published>2025-10-17T17:59:59Z</published>
    <updated>2025-10-18T10:00:00Z</updated>
    <title>Emergent Coordination in
      LLM Agent Swarms</title>
    <summary>  We study how multi-agent
      systems coordinate.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2510.12345v2" rel="alternate" type="text/html"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2510.99999v1</id>
    <title></title>
    <summary>Missing title is skipped.</summary>
  </entry>
</feed>`

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Research Blog</title>
    <link>https://blog.example.org/</link>
    <item>
      <title>Reasoning &amp; planning with agents</title>
      <link>/posts/reasoning/</link>
      <description><![CDATA[<p>A <b>long</b> look at planning.</p>]]></description>
      <pubDate>Fri, 17 Oct 2025 09:00:00 GMT</pubDate>
      <author>ruder@example.org (Sebastian)</author>
    </item>
    <item>
      <title>Duplicate</title>
      <link>https://blog.example.org/posts/reasoning/</link>
    </item>
    <item>
      <description>No title or link</description>
    </item>
  </channel>
</rss>`

func TestArxivFeedAdapterParse(t *testing.T) {
	t.Parallel()

	req := scanner.Request{
		Source:   "arxiv",
		Category: domain.CategoryArxiv,
		Endpoint: scanner.Endpoint{Name: "cs.MA"},
	}

	items := ArxivFeedAdapter{}.Parse([]byte(arxivAtomFixture), req)
	require.Len(t, items, 1)

	paper := items[0]
	assert.Equal(t, "2510.12345", paper.ID)
	assert.Equal(t, "Emergent Coordination in LLM Agent Swarms", paper.Title)
	assert.Equal(t, "We study how multi-agent systems coordinate.", paper.Summary)
	assert.Equal(t, "https://arxiv.org/abs/2510.12345", paper.URL)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, paper.Authors)
	assert.Equal(t, time.Date(2025, time.October, 17, 17, 59, 59, 0, time.UTC), paper.PublishedAt)
	assert.Equal(t, "cs.MA", paper.Attr(domain.AttrFeed))
}

func TestFeedAdapterParse(t *testing.T) {
	t.Parallel()

	req := scanner.Request{
		Source:   "Example Blog",
		Category: domain.CategoryBlog,
		Endpoint: scanner.Endpoint{URL: "https://blog.example.org/feed.xml"},
	}

	items := FeedAdapter{}.Parse([]byte(rssFixture), req)
	require.Len(t, items, 1)

	post := items[0]
	assert.Equal(t, "https://blog.example.org/posts/reasoning/", post.ID)
	assert.Equal(t, "Reasoning & planning with agents", post.Title)
	assert.Equal(t, "A long look at planning.", post.Summary)
	assert.Equal(t, "Example Blog", post.Source)
	assert.Equal(t, 2025, post.PublishedAt.Year())
}

func TestFeedAdaptersToleratesGarbage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FeedAdapter{}.Parse([]byte("<html>not a feed"), scanner.Request{}))
	assert.Empty(t, ArxivFeedAdapter{}.Parse(nil, scanner.Request{}))
}
