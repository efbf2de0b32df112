package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

var wib = time.FixedZone("WIB", 7*60*60)

func newTestStore(t *testing.T, retain int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), retain)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshotAt(minute int) Snapshot {
	closed := time.Date(2024, time.July, 2, 0, 0, 0, 0, wib)
	return Snapshot{
		FetchedAt: time.Date(2024, time.July, 2, 9, minute, 0, 0, wib),
		Source:    "https://example.com/sheet.csv",
		Tickets: []models.Ticket{
			{
				ID:           "IN1",
				TicketNo:     "IN1",
				Team:         "TEAM_A",
				Status:       models.StatusClose,
				InputDate:    time.Date(2024, time.July, 1, 8, 15, 0, 0, wib),
				ReportedDate: time.Date(2024, time.July, 1, 8, 0, 0, 0, wib),
				TTRMinutes:   90,
				CloseDate:    &closed,
			},
		},
		Diagnostics: ticket.Diagnostics{
			Kept:    1,
			Dropped: []ticket.Drop{{Line: 3, Reason: ticket.ReasonMissingTeam}},
		},
	}
}

func TestLatestEmpty(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.Latest()

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLatest(t *testing.T) {
	s := newTestStore(t, 0)

	saved, err := s.Save(snapshotAt(0))
	require.NoError(t, err)
	assert.Len(t, saved.ID, 36)

	got, err := s.Latest()
	require.NoError(t, err)

	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Source, got.Source)
	assert.True(t, saved.FetchedAt.Equal(got.FetchedAt))
	require.Len(t, got.Tickets, 1)
	tk := got.Tickets[0]
	assert.Equal(t, "IN1", tk.TicketNo)
	assert.Equal(t, 90, tk.TTRMinutes)
	assert.True(t, saved.Tickets[0].ReportedDate.Equal(tk.ReportedDate))
	require.NotNil(t, tk.CloseDate)
	assert.True(t, saved.Tickets[0].CloseDate.Equal(*tk.CloseDate))
	_, offset := tk.ReportedDate.Zone()
	assert.Equal(t, 7*60*60, offset)
	assert.Equal(t, 1, got.Diagnostics.Count(ticket.ReasonMissingTeam))
}

func TestSaveFillsDefaults(t *testing.T) {
	s := newTestStore(t, 0)

	saved, err := s.Save(Snapshot{})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.FetchedAt.IsZero())
}

func TestLatestIsNewestFetch(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.Save(snapshotAt(30))
	require.NoError(t, err)
	_, err = s.Save(snapshotAt(10))
	require.NoError(t, err)

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, 30, got.FetchedAt.Minute())
}

func TestRetention(t *testing.T) {
	s := newTestStore(t, 3)

	for minute := 0; minute < 5; minute++ {
		_, err := s.Save(snapshotAt(minute))
		require.NoError(t, err)
	}

	all, err := s.History(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 4, all[0].FetchedAt.Minute())
	assert.Equal(t, 2, all[2].FetchedAt.Minute())

	two, err := s.History(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestHistoryEmpty(t *testing.T) {
	s := newTestStore(t, 0)

	all, err := s.History(10)

	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestDeterministicEncoding(t *testing.T) {
	snap := snapshotAt(0)
	snap.ID = "fixed"

	a, err := marshal(snap)
	require.NoError(t, err)
	b, err := marshal(snap)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestIssueKeys(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.IssueKey("IN1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetIssueKey("IN1", "OPS-1"))
	require.NoError(t, s.SetIssueKey("IN1", "OPS-1"))

	key, err := s.IssueKey("IN1")
	require.NoError(t, err)
	assert.Equal(t, "OPS-1", key)

	require.NoError(t, s.SetIssueKey("IN1", "OPS-7"))
	key, err = s.IssueKey("IN1")
	require.NoError(t, err)
	assert.Equal(t, "OPS-7", key)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path, 0)
	require.NoError(t, err)
	saved, err := s.Save(snapshotAt(0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
}
