package githubapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

// Client implements ports.CodeHost against the GitHub REST API. All calls go
// through the typed go-github client; no subprocess tooling.
type Client struct {
	gh *github.Client
}

var _ ports.CodeHost = (*Client)(nil)

func NewClient(token string) *Client {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))

	return &Client{gh: github.NewClient(httpClient)}
}

func (c *Client) SearchRepositories(ctx context.Context, query string, limit int) ([]ports.RepoSearchResult, error) {
	perPage := limit
	if perPage <= 0 || perPage > 100 {
		perPage = 30
	}

	result, _, err := c.gh.Search.Repositories(ctx, query, &github.SearchOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, errs.Wrapf(err, "search repositories %q", query)
	}

	items := make([]ports.RepoSearchResult, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		items = append(items, ports.RepoSearchResult{
			OwnerLogin:  repo.GetOwner().GetLogin(),
			OwnerID:     repo.GetOwner().GetID(),
			Name:        repo.GetName(),
			FullName:    repo.GetFullName(),
			URL:         repo.GetHTMLURL(),
			Stars:       repo.GetStargazersCount(),
			Description: repo.GetDescription(),
			Language:    repo.GetLanguage(),
			LastUpdated: repo.GetPushedAt().Time,
		})
	}
	return items, nil
}

func (c *Client) GetUserProfile(ctx context.Context, username string) (ports.UserProfile, error) {
	user, _, err := c.gh.Users.Get(ctx, username)
	if err != nil {
		return ports.UserProfile{}, errs.Wrapf(err, "get user %q", username)
	}

	profile := ports.UserProfile{
		Login:     user.GetLogin(),
		ID:        user.GetID(),
		Followers: user.GetFollowers(),
		CreatedAt: user.GetCreatedAt().Time,
	}
	if email := user.GetEmail(); email != "" {
		profile.Email = &email
	}
	return profile, nil
}

func (c *Client) ForkRepository(ctx context.Context, owner, repo string) (string, error) {
	fork, _, err := c.gh.Repositories.CreateFork(ctx, owner, repo, nil)
	if err != nil {
		// Forking is asynchronous; GitHub answers 202 while the fork is
		// still being created, which go-github surfaces as AcceptedError.
		if _, accepted := err.(*github.AcceptedError); !accepted {
			return "", errs.Wrapf(err, "fork %s/%s", owner, repo)
		}
	}

	if fork != nil && fork.GetFullName() != "" {
		return fork.GetFullName(), nil
	}
	return "", nil
}

func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, fromBranch string) error {
	base, _, err := c.gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+fromBranch)
	if err != nil {
		return errs.Wrapf(err, "get ref %s on %s/%s", fromBranch, owner, repo)
	}

	_, _, err = c.gh.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.Ptr("refs/heads/" + branch),
		Object: &github.GitObject{SHA: base.Object.SHA},
	})
	if err != nil {
		return errs.Wrapf(err, "create branch %s on %s/%s", branch, owner, repo)
	}
	return nil
}

func (c *Client) CreateFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error {
	_, _, err := c.gh.Repositories.CreateFile(ctx, owner, repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(branch),
	})
	if err != nil {
		return errs.Wrapf(err, "create file %s on %s/%s@%s", path, owner, repo, branch)
	}
	return nil
}

func (c *Client) OpenPullRequest(ctx context.Context, owner, repo, title, body, head, base string) (ports.PullRequestRef, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	})
	if err != nil {
		return ports.PullRequestRef{}, errs.Wrapf(err, "open pull request on %s/%s", owner, repo)
	}

	return ports.PullRequestRef{
		URL:    pr.GetHTMLURL(),
		Number: pr.GetNumber(),
	}, nil
}

func (c *Client) ListPullRequestComments(ctx context.Context, prURL string) ([]ports.PRComment, error) {
	owner, repo, number, err := ParsePRURL(prURL)
	if err != nil {
		return nil, err
	}

	// PR conversation comments live on the issues endpoint.
	comments, _, err := c.gh.Issues.ListComments(ctx, owner, repo, number, nil)
	if err != nil {
		return nil, errs.Wrapf(err, "list comments for %s", prURL)
	}

	items := make([]ports.PRComment, 0, len(comments))
	for _, comment := range comments {
		items = append(items, ports.PRComment{
			Author:    comment.GetUser().GetLogin(),
			Body:      comment.GetBody(),
			IsBot:     isBotAuthor(comment.GetUser()),
			CreatedAt: comment.GetCreatedAt().Time,
		})
	}
	return items, nil
}

func (c *Client) PostPullRequestComment(ctx context.Context, prURL, body string) error {
	owner, repo, number, err := ParsePRURL(prURL)
	if err != nil {
		return err
	}

	_, _, err = c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return errs.Wrapf(err, "post comment on %s", prURL)
	}
	return nil
}

func (c *Client) GetPullRequestState(ctx context.Context, prURL string) (string, error) {
	owner, repo, number, err := ParsePRURL(prURL)
	if err != nil {
		return "", err
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", errs.Wrapf(err, "get pull request %s", prURL)
	}

	if pr.GetMerged() {
		return "merged", nil
	}
	return pr.GetState(), nil
}

// ParsePRURL extracts owner, repo and number from an HTML pull request URL
// like https://github.com/owner/repo/pull/42.
func ParsePRURL(prURL string) (owner, repo string, number int, err error) {
	parsed, err := url.Parse(strings.TrimSpace(prURL))
	if err != nil {
		return "", "", 0, errs.Wrapf(err, "parse pr url %q", prURL)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) != 4 || parts[2] != "pull" {
		return "", "", 0, fmt.Errorf("unexpected pull request url %q", prURL)
	}

	number, err = strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("unexpected pull request number in %q", prURL)
	}
	return parts[0], parts[1], number, nil
}

func isBotAuthor(user *github.User) bool {
	if user.GetType() == "Bot" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(user.GetLogin()), "[bot]")
}
