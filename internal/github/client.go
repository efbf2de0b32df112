// Package github publishes the team report as a GitHub issue.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/rifqisp97-lab/technician-guardian/internal/config"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
)

// Client encapsulates the GitHub API client and the target repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
	labels []string
}

// Issue identifies a published report issue.
type Issue struct {
	Number  int
	URL     string
	Created bool
}

// APIURL returns the REST endpoint for domain. An empty domain means
// github.com; anything else is treated as a GitHub Enterprise host.
func APIURL(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client for the configured repository.
func NewClient(cfg config.GitHubConfig) (*Client, error) {
	return newClient(cfg, APIURL(cfg.Domain))
}

func newClient(cfg config.GitHubConfig, apiURL string) (*Client, error) {
	if err := config.ValidateGitHubConfig(&config.Config{GitHub: cfg}); err != nil {
		return nil, err
	}
	owner, repo, _ := strings.Cut(cfg.Repository, "/")

	logging.Info("github configuration",
		"domain", cfg.Domain,
		"api_url", apiURL,
		"repository", cfg.Repository,
		"token", logging.MaskSensitive(cfg.Token))

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))

	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}
	client.BaseURL = parsedURL
	client.UploadURL = parsedURL

	return &Client{client: client, owner: owner, repo: repo, labels: cfg.Labels}, nil
}

// Verify checks that the token is accepted and returns the login it belongs to.
func (c *Client) Verify(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to test github token", "error", err, "status_code", statusCode(resp))
		return "", fmt.Errorf("error testing github token: %w", err)
	}
	logging.Debug("github authentication successful", "username", user.GetLogin())
	return user.GetLogin(), nil
}

// Publish creates the issue titled title, or replaces the body of the
// existing one. Closed issues with the same title are reopened.
func (c *Client) Publish(ctx context.Context, title, body string) (Issue, error) {
	existing, err := c.findIssue(ctx, title)
	if err != nil {
		return Issue{}, err
	}

	if existing == nil {
		req := &github.IssueRequest{
			Title: github.String(title),
			Body:  github.String(body),
		}
		if len(c.labels) > 0 {
			req.Labels = &c.labels
		}
		issue, _, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
		if err != nil {
			return Issue{}, fmt.Errorf("failed to create issue %q: %w", title, err)
		}
		logging.Info("created report issue", "repository", c.owner+"/"+c.repo, "issue_number", issue.GetNumber())
		return Issue{Number: issue.GetNumber(), URL: issue.GetHTMLURL(), Created: true}, nil
	}

	req := &github.IssueRequest{
		Body:  github.String(body),
		State: github.String("open"),
	}
	issue, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, existing.GetNumber(), req)
	if err != nil {
		return Issue{}, fmt.Errorf("failed to update issue %s#%d: %w", c.repo, existing.GetNumber(), err)
	}
	if len(c.labels) > 0 {
		// GitHub creates labels that don't exist yet
		if _, _, err := c.client.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, issue.GetNumber(), c.labels); err != nil {
			return Issue{}, fmt.Errorf("failed to add labels to issue %s#%d: %w", c.repo, issue.GetNumber(), err)
		}
	}
	logging.Info("updated report issue", "repository", c.owner+"/"+c.repo, "issue_number", issue.GetNumber())
	return Issue{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}, nil
}

// findIssue pages through every issue of the repository and returns the one
// titled title, or nil. Pull requests are skipped.
func (c *Client) findIssue(ctx context.Context, title string) (*github.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Labels:      c.labels,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch GitHub issues: %w", err)
		}
		for _, issue := range issues {
			if issue.PullRequestLinks != nil {
				continue
			}
			if issue.GetTitle() == title {
				return issue, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
