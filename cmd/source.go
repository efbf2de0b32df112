package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/config"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
	"github.com/rifqisp97-lab/technician-guardian/internal/sheet"
	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
	"github.com/rifqisp97-lab/technician-guardian/pkg/models"
)

// errNoSource is returned when neither an argument nor a sheet URL names the input.
var errNoSource = errors.New("no input: pass a file, - for stdin, or set --url / GUARDIAN_SHEET_URL")

// newFetcher builds the sheet downloader from configuration.
func newFetcher(c config.SheetConfig) *sheet.Fetcher {
	return sheet.New(c.URL,
		sheet.WithHTTPClient(sheet.NewHTTPClient(c.Timeout)),
		sheet.WithRetry(c.MaxRetries, c.Backoff, c.MaxBackoff))
}

// readSource returns the raw sheet text named by args: a path, "-" for
// standard input, or the configured sheet URL when args is empty.
func readSource(ctx context.Context, cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		var b []byte
		var err error
		if args[0] == "-" {
			b, err = io.ReadAll(cmd.InOrStdin())
		} else {
			b, err = os.ReadFile(args[0])
		}
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return sheet.Decode(b)
	}

	if cfg.Sheet.URL == "" {
		return "", errNoSource
	}
	logging.Info("fetching sheet", "url", logging.RedactURL(cfg.Sheet.URL))
	return newFetcher(cfg.Sheet).Fetch(ctx)
}

// loadTickets reads and normalizes the input named by args.
func loadTickets(ctx context.Context, cmd *cobra.Command, args []string) ([]models.Ticket, ticket.Diagnostics, error) {
	var diag ticket.Diagnostics
	raw, err := readSource(ctx, cmd, args)
	if err != nil {
		return nil, diag, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, diag, err
	}

	opts := []ticket.Option{ticket.WithLocation(loc), ticket.WithDiagnostics(&diag)}
	var tickets []models.Ticket
	if cfg.Parse.Keyed {
		tickets = ticket.ParseKeyed(raw, opts...)
	} else {
		tickets = ticket.Parse(raw, opts...)
	}

	logging.Debug("parsed sheet",
		"kept", diag.Kept,
		"dropped", len(diag.Dropped),
		"date_fallbacks", diag.DateFallbacks)
	for _, d := range diag.Dropped {
		logging.Debug("dropped row", "line", d.Line, "reason", d.Reason)
	}
	return tickets, diag, nil
}
