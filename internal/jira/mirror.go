package jira

import (
	"context"
	"errors"
	"fmt"

	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
	"github.com/rifqisp97-lab/technician-guardian/internal/store"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// Tracker is the issue tracker the mirror writes to. *Client implements it.
type Tracker interface {
	FindIssue(ctx context.Context, ticketNo string) (Issue, bool, error)
	GetIssue(ctx context.Context, key string) (Issue, error)
	CreateIssue(ctx context.Context, t models.Ticket) (Issue, error)
	Transition(ctx context.Context, key, name string) error
}

// Mapping remembers which issue mirrors which ticket. *store.Store
// implements it; lookups of unknown tickets return store.ErrNotFound.
type Mapping interface {
	IssueKey(ticketNo string) (string, error)
	SetIssueKey(ticketNo, issueKey string) error
}

// Failure is a ticket the mirror could not process.
type Failure struct {
	TicketNo string
	Err      error
}

// Result counts what a Sync did.
type Result struct {
	Created      int
	Transitioned int
	Unchanged    int
	Failed       []Failure
}

// Mirror creates one issue per ticket and closes issues whose ticket is
// closed.
type Mirror struct {
	tracker        Tracker
	mapping        Mapping
	doneTransition string
	dryRun         bool
}

// NewMirror returns a Mirror. mapping may be nil, in which case every ticket
// is looked up by search.
func NewMirror(tracker Tracker, mapping Mapping, doneTransition string, dryRun bool) *Mirror {
	if doneTransition == "" {
		doneTransition = "Done"
	}
	return &Mirror{tracker: tracker, mapping: mapping, doneTransition: doneTransition, dryRun: dryRun}
}

// Sync mirrors tickets. A failure on one ticket does not stop the others;
// the returned error is non-nil only when ctx is cancelled.
func (m *Mirror) Sync(ctx context.Context, tickets []models.Ticket) (Result, error) {
	var res Result
	seen := make(map[string]bool, len(tickets))

	for _, t := range tickets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if seen[t.TicketNo] {
			continue
		}
		seen[t.TicketNo] = true

		created, transitioned, err := m.syncOne(ctx, t)
		switch {
		case err != nil:
			logging.Warn("failed to mirror ticket", "ticket", t.TicketNo, "error", err)
			res.Failed = append(res.Failed, Failure{TicketNo: t.TicketNo, Err: err})
		case created:
			res.Created++
			if transitioned {
				res.Transitioned++
			}
		case transitioned:
			res.Transitioned++
		default:
			res.Unchanged++
		}
	}
	return res, nil
}

func (m *Mirror) syncOne(ctx context.Context, t models.Ticket) (created, transitioned bool, err error) {
	issue, found, err := m.lookup(ctx, t.TicketNo)
	if err != nil {
		return false, false, err
	}

	if !found {
		if m.dryRun {
			logging.Info("would create jira issue", "ticket", t.TicketNo, "summary", Summary(t))
			return true, t.IsClosed(), nil
		}
		issue, err = m.tracker.CreateIssue(ctx, t)
		if err != nil {
			return false, false, err
		}
		created = true
		if m.mapping != nil {
			if err := m.mapping.SetIssueKey(t.TicketNo, issue.Key); err != nil {
				logging.Warn("failed to remember issue key", "ticket", t.TicketNo, "key", issue.Key, "error", err)
			}
		}
		logging.Info("created jira issue", "ticket", t.TicketNo, "key", issue.Key)
	}

	if !t.IsClosed() || issue.Done {
		return created, false, nil
	}
	if m.dryRun {
		logging.Info("would transition jira issue", "ticket", t.TicketNo, "key", issue.Key, "transition", m.doneTransition)
		return created, true, nil
	}
	if err := m.tracker.Transition(ctx, issue.Key, m.doneTransition); err != nil {
		return created, false, err
	}
	logging.Info("transitioned jira issue", "ticket", t.TicketNo, "key", issue.Key, "transition", m.doneTransition)
	return created, true, nil
}

func (m *Mirror) lookup(ctx context.Context, ticketNo string) (Issue, bool, error) {
	if m.mapping != nil {
		key, err := m.mapping.IssueKey(ticketNo)
		switch {
		case err == nil:
			issue, err := m.tracker.GetIssue(ctx, key)
			if err != nil {
				return Issue{}, false, err
			}
			return issue, true, nil
		case !errors.Is(err, store.ErrNotFound):
			return Issue{}, false, fmt.Errorf("reading issue mapping: %w", err)
		}
	}

	issue, found, err := m.tracker.FindIssue(ctx, ticketNo)
	if err != nil || !found {
		return issue, found, err
	}
	if m.mapping != nil && !m.dryRun {
		if err := m.mapping.SetIssueKey(ticketNo, issue.Key); err != nil {
			logging.Warn("failed to remember issue key", "ticket", ticketNo, "key", issue.Key, "error", err)
		}
	}
	return issue, true, nil
}
