// Package jira mirrors normalized tickets into a JIRA project.
package jira

import (
	"context"
	"fmt"
	"strings"

	jira "github.com/andygrunwald/go-jira"

	"github.com/rifqisp97-lab/technician-guardian/internal/config"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// Label is attached to every issue guardian creates.
const Label = "guardian"

// signature marks issue descriptions written by guardian.
const signature = "Created by guardian from ticket "

// Issue is the part of a JIRA issue the mirror cares about.
type Issue struct {
	Key    string
	Status string
	// Done is true when the issue's status belongs to the done category
	Done bool
}

// Client handles interactions with the JIRA API.
type Client struct {
	client    *jira.Client
	project   string
	issueType string
}

// NewClient creates a JIRA client authenticated with basic auth.
func NewClient(cfg config.JiraConfig) (*Client, error) {
	if err := config.ValidateJiraConfig(&config.Config{Jira: cfg}); err != nil {
		return nil, err
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.Token,
	}
	client, err := jira.NewClient(tp.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating JIRA client: %w", err)
	}

	issueType := cfg.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	logging.Debug("jira configuration",
		"url", cfg.BaseURL,
		"username", cfg.Username,
		"token", logging.MaskSensitive(cfg.Token),
		"project", cfg.Project)

	return &Client{client: client, project: cfg.Project, issueType: issueType}, nil
}

// Summary is the issue title used for t. It starts with the ticket number so
// that FindIssue can locate it again.
func Summary(t models.Ticket) string {
	parts := []string{t.TicketNo, "-", t.Team}
	if t.ODP != "" {
		parts = append(parts, "("+t.ODP+")")
	}
	return strings.Join(parts, " ")
}

// Description renders the ticket fields as JIRA wiki markup.
func Description(t models.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "||Field||Value||\n")
	row := func(name, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "|%s|%s|\n", name, value)
	}
	row("Ticket", t.TicketNo)
	row("Team", t.Team)
	row("Owner group", t.OwnerGroup)
	row("Service number", t.InetNo)
	row("ODP", t.ODP)
	row("Reported", t.ReportedDate.Format("02/01/2006 15:04"))
	row("Status", t.Status)
	row("TTR", t.TTRRaw)
	fmt.Fprintf(&b, "\n----\n%s%s", signature, t.TicketNo)
	return b.String()
}

// FindIssue searches the project for the issue mirroring ticketNo.
func (c *Client) FindIssue(ctx context.Context, ticketNo string) (Issue, bool, error) {
	jql := fmt.Sprintf(`project = "%s" AND labels = %s AND summary ~ "\"%s\""`, c.project, Label, escapeJQL(ticketNo))
	issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
		MaxResults: 10,
		Fields:     []string{"summary", "status"},
	})
	if err != nil {
		return Issue{}, false, fmt.Errorf("searching JIRA for %s: %w (status: %d)", ticketNo, err, statusCode(resp))
	}

	for _, issue := range issues {
		if issue.Fields == nil {
			continue
		}
		if strings.HasPrefix(issue.Fields.Summary, ticketNo+" ") || issue.Fields.Summary == ticketNo {
			return toIssue(&issue), true, nil
		}
	}
	return Issue{}, false, nil
}

// GetIssue loads an issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (Issue, error) {
	issue, resp, err := c.client.Issue.GetWithContext(ctx, key, &jira.GetQueryOptions{Fields: "status"})
	if err != nil {
		return Issue{}, fmt.Errorf("loading JIRA issue %s: %w (status: %d)", key, err, statusCode(resp))
	}
	return toIssue(issue), nil
}

// CreateIssue creates the issue mirroring t.
func (c *Client) CreateIssue(ctx context.Context, t models.Ticket) (Issue, error) {
	issue := &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: c.project},
			Type:        jira.IssueType{Name: c.issueType},
			Summary:     Summary(t),
			Description: Description(t),
			Labels:      []string{Label},
		},
	}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		return Issue{}, fmt.Errorf("creating JIRA issue for %s: %w (status: %d)", t.TicketNo, err, statusCode(resp))
	}
	logging.Debug("created jira issue", "ticket", t.TicketNo, "key", created.Key)
	return Issue{Key: created.Key}, nil
}

// Transition applies the workflow transition named name to the issue.
// Names are compared case-insensitively.
func (c *Client) Transition(ctx context.Context, key, name string) error {
	transitions, resp, err := c.client.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return fmt.Errorf("listing transitions of %s: %w (status: %d)", key, err, statusCode(resp))
	}

	available := make([]string, 0, len(transitions))
	for _, tr := range transitions {
		if strings.EqualFold(tr.Name, name) || strings.EqualFold(tr.To.Name, name) {
			if resp, err := c.client.Issue.DoTransitionWithContext(ctx, key, tr.ID); err != nil {
				return fmt.Errorf("transitioning %s to %s: %w (status: %d)", key, name, err, statusCode(resp))
			}
			return nil
		}
		available = append(available, tr.Name)
	}
	return fmt.Errorf("issue %s has no transition %q (available: %s)", key, name, strings.Join(available, ", "))
}

func toIssue(issue *jira.Issue) Issue {
	out := Issue{Key: issue.Key}
	if issue.Fields != nil && issue.Fields.Status != nil {
		out.Status = issue.Fields.Status.Name
		out.Done = issue.Fields.Status.StatusCategory.Key == "done"
	}
	return out
}

func escapeJQL(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func statusCode(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
