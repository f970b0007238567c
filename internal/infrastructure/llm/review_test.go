package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
)

func reviewItems() []domain.Item {
	return []domain.Item{
		{
			ID:          "2501.00001",
			Category:    domain.CategoryArxiv,
			Title:       "Coordinating LLM agents",
			Summary:     strings.Repeat("long abstract ", 60),
			Authors:     []string{"A", "B", "C", "D"},
			PublishedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			URL:         "https://arxiv.org/abs/2501.00001",
			Score:       4,
		},
		{ID: "https://github.com/org/swarm", Category: domain.CategoryGitHub, Title: "org/swarm"},
	}
}

func TestBuildPromptShapesItems(t *testing.T) {
	t.Parallel()

	prompt, err := BuildPrompt(reviewItems())
	require.NoError(t, err)

	body := prompt[strings.Index(prompt, "[") : strings.Index(prompt, "]\n\n")+1]
	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &sent))
	require.Len(t, sent, 2)

	assert.Len(t, sent[0]["authors"], 3)
	assert.Len(t, []rune(sent[0]["summary"].(string)), maxSummaryRunes)
	assert.Equal(t, "2025-01-02", sent[0]["published"])
	assert.NotContains(t, sent[0], "score")
	assert.Contains(t, prompt, `"should_read"`)
}

func TestParseReviewIsLenient(t *testing.T) {
	t.Parallel()

	reply := "Sure! Here is the review:\n```json\n" + `{
  "reviews": [
    {"id": "2501.00001", "score": 9, "key_insight": " Agents negotiate. ", "should_read": "YES", "tags": ["multi-agent", " "]},
    {"id": "https://github.com/org/swarm", "score": "2", "should_read": "later"},
    {"id": "unknown", "score": 5, "should_read": "yes"}
  ],
  "summary": "Busy day.",
  "top_pick": "2501.00001"
}` + "\n```\nHope it helps."

	review, err := ParseReview(reply, reviewItems())
	require.NoError(t, err)

	assert.Equal(t, "Busy day.", review.Summary)
	assert.Equal(t, "2501.00001", review.TopPick)
	require.Len(t, review.Annotations, 2)

	a, ok := review.Annotation("2501.00001")
	require.True(t, ok)
	assert.Equal(t, 5, a.Score)
	assert.Equal(t, "Agents negotiate.", a.KeyInsight)
	assert.Equal(t, domain.RecommendYes, a.Recommendation)
	assert.Equal(t, []string{"multi-agent"}, a.Tags)

	b, _ := review.Annotation("https://github.com/org/swarm")
	assert.Equal(t, 2, b.Score)
	assert.Equal(t, domain.RecommendMaybe, b.Recommendation)
}

func TestParseReviewMissingFieldsAndUnknownTopPick(t *testing.T) {
	t.Parallel()

	review, err := ParseReview(`{"reviews":[{"id":"2501.00001"}],"top_pick":"nope"}`, reviewItems())
	require.NoError(t, err)

	a, ok := review.Annotation("2501.00001")
	require.True(t, ok)
	assert.Zero(t, a.Score)
	assert.Equal(t, domain.RecommendMaybe, a.Recommendation)
	assert.Empty(t, review.TopPick)
	assert.Empty(t, review.Summary)
}

func TestParseReviewScoreOnlyClampedWhenPresent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		score string
		want  int
	}{
		{name: "null", score: `null`, want: 0},
		{name: "word", score: `"high"`, want: 0},
		{name: "zero", score: `0`, want: 1},
		{name: "negative string", score: `"-2"`, want: 1},
		{name: "fraction", score: `3.6`, want: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reply := `{"reviews":[{"id":"2501.00001","should_read":"yes","score":` + tc.score + `}]}`
			review, err := ParseReview(reply, reviewItems())
			require.NoError(t, err)
			a, ok := review.Annotation("2501.00001")
			require.True(t, ok)
			assert.Equal(t, tc.want, a.Score)
		})
	}
}

func TestParseReviewRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseReview("I cannot help with that.", reviewItems())
	require.Error(t, err)

	_, err = ParseReview("{not json}", reviewItems())
	require.Error(t, err)
}

func TestChatReviewerReview(t *testing.T) {
	t.Parallel()

	var got struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		content := `{"reviews":[{"id":"2501.00001","score":4,"should_read":"no"}],"summary":"ok"}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer server.Close()

	reviewer := NewChatReviewer(config.EnrichmentConfig{
		Endpoint: server.URL, Model: "test-model", APIKey: "k", SystemPrompt: "be brief",
	})
	review, err := reviewer.Review(context.Background(), reviewItems())
	require.NoError(t, err)

	assert.Equal(t, "Bearer k", auth)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "be brief", got.Messages[0].Content)
	assert.Equal(t, "ok", review.Summary)
	a, _ := review.Annotation("2501.00001")
	assert.Equal(t, domain.RecommendNo, a.Recommendation)
}

func TestChatReviewerErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewChatReviewer(config.EnrichmentConfig{Endpoint: server.URL, Model: "m", APIKey: "k"}).
		Review(context.Background(), reviewItems())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = NewChatReviewer(config.EnrichmentConfig{}).Review(context.Background(), reviewItems())
	require.Error(t, err)
}

func TestCommandReviewerReview(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	reviewer := NewCommandReviewer(config.EnrichmentConfig{
		Command: "sh",
		Args: []string{"-c",
			`case "$1" in *Items:*) printf '%s' '{"summary":"from cli","top_pick":"2501.00001"}';; *) exit 3;; esac`,
			"reviewer"},
	})

	review, err := reviewer.Review(context.Background(), reviewItems())
	require.NoError(t, err)
	assert.Equal(t, "from cli", review.Summary)
	assert.Equal(t, "2501.00001", review.TopPick)
}

func TestCommandReviewerFailureAndTimeout(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := NewCommandReviewer(config.EnrichmentConfig{Command: "sh", Args: []string{"-c", "echo boom >&2; exit 2"}}).
		Review(context.Background(), reviewItems())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = NewCommandReviewer(config.EnrichmentConfig{Command: "sh", Args: []string{"-c", "sleep 5"}}).
		Review(ctx, reviewItems())
	require.Error(t, err)

	_, err = NewCommandReviewer(config.EnrichmentConfig{}).Review(context.Background(), reviewItems())
	require.Error(t, err)
}
