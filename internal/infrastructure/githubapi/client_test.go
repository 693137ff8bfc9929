package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient points the wrapped go-github client at a httptest server.
func setupTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("")
	gh, err := github.NewClient(server.Client()).WithEnterpriseURLs(server.URL, server.URL)
	require.NoError(t, err)
	client.gh = gh

	return client
}

func TestParsePRURL(t *testing.T) {
	owner, repo, number, err := ParsePRURL("https://github.com/dev/my-mcp-server/pull/12")
	require.NoError(t, err)
	assert.Equal(t, "dev", owner)
	assert.Equal(t, "my-mcp-server", repo)
	assert.Equal(t, 12, number)

	_, _, _, err = ParsePRURL("https://github.com/dev/my-mcp-server/issues/12")
	assert.Error(t, err)

	_, _, _, err = ParsePRURL("https://github.com/dev/my-mcp-server/pull/abc")
	assert.Error(t, err)
}

func TestSearchRepositoriesMapsResults(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/search/repositories", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"total_count":1,"items":[{
			"name":"my-mcp-server",
			"full_name":"dev/my-mcp-server",
			"html_url":"https://github.com/dev/my-mcp-server",
			"stargazers_count":120,
			"description":"uses @modelcontextprotocol",
			"language":"TypeScript",
			"pushed_at":"2026-08-15T10:00:00Z",
			"owner":{"login":"dev","id":99}
		}]}`)
	})
	client := setupTestClient(t, handler)

	results, err := client.SearchRepositories(context.Background(), "mcp server", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "dev", got.OwnerLogin)
	assert.Equal(t, int64(99), got.OwnerID)
	assert.Equal(t, "my-mcp-server", got.Name)
	assert.Equal(t, 120, got.Stars)
	assert.Equal(t, "TypeScript", got.Language)
	assert.False(t, got.LastUpdated.IsZero())
}

func TestListPullRequestCommentsFlagsBots(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/dev/repo/issues/3/comments", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `[
			{"body":"here it is","user":{"login":"dev","type":"User"}},
			{"body":"ci passed","user":{"login":"github-actions[bot]","type":"Bot"}}
		]`)
	})
	client := setupTestClient(t, handler)

	comments, err := client.ListPullRequestComments(context.Background(), "https://github.com/dev/repo/pull/3")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.False(t, comments[0].IsBot)
	assert.True(t, comments[1].IsBot)
}

func TestGetPullRequestStateMerged(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"number":3,"state":"closed","merged":true}`)
	})
	client := setupTestClient(t, handler)

	state, err := client.GetPullRequestState(context.Background(), "https://github.com/dev/repo/pull/3")
	require.NoError(t, err)
	assert.Equal(t, "merged", state)
}
