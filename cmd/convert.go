package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rifqisp97-lab/technician-guardian/internal/ticket"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file|-]",
	Short: "Rewrite a sheet export in the canonical semicolon format",
	Long: `Convert normalizes a sheet export and writes it back out with a header line,
';' as the delimiter, renumbered rows and uniform date formats. Dropped rows
are not written. Reading the output with parse yields the same tickets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tickets, _, err := loadTickets(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("out")
		if path == "" {
			return ticket.Write(cmd.OutOrStdout(), tickets)
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := ticket.Write(f, tickets); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("out", "", "write to this file instead of stdout")
}
