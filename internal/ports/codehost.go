package ports

import (
	"context"
	"time"
)

// CodeHost is the search/PR boundary. Every call is remote, fallible and
// rate-limited; callers own retry/skip policy.
type CodeHost interface {
	SearchRepositories(ctx context.Context, query string, limit int) ([]RepoSearchResult, error)
	GetUserProfile(ctx context.Context, username string) (UserProfile, error)
	ForkRepository(ctx context.Context, owner, repo string) (forkFullName string, err error)
	CreateBranch(ctx context.Context, owner, repo, branch, fromBranch string) error
	CreateFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error
	OpenPullRequest(ctx context.Context, owner, repo, title, body, head, base string) (PullRequestRef, error)
	ListPullRequestComments(ctx context.Context, prURL string) ([]PRComment, error)
	PostPullRequestComment(ctx context.Context, prURL, body string) error
	GetPullRequestState(ctx context.Context, prURL string) (string, error)
}

type RepoSearchResult struct {
	OwnerLogin  string
	OwnerID     int64
	Name        string
	FullName    string
	URL         string
	Stars       int
	Description string
	Language    string
	LastUpdated time.Time
}

type UserProfile struct {
	Login     string
	ID        int64
	Email     *string
	Followers int
	CreatedAt time.Time
}

type PullRequestRef struct {
	URL    string
	Number int
}

type PRComment struct {
	Author    string
	Body      string
	IsBot     bool
	CreatedAt time.Time
}
