package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/supadmin/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		search   string
		limit    int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the local activity history",
		Long: `Show or clear the local activity history.

Examples:
  supadmin history                  # Last 20 entries
  supadmin history --search orders  # Entries touching "orders"
  supadmin history --clear          # Delete every entry`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := history.New()
			if err != nil {
				return fail(err)
			}
			defer h.Close()

			if clearAll {
				if err := h.Clear(); err != nil {
					return fail(err)
				}
				green.Print("✓ ")
				fmt.Println("History cleared")
				return nil
			}

			var entries []history.Entry
			if search != "" {
				entries, err = h.Search("%"+search+"%", limit)
			} else {
				entries, err = h.Recent(limit)
			}
			if err != nil {
				return fail(err)
			}
			if len(entries) == 0 {
				fmt.Println("No activity recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					string(e.Action), e.Table, e.RecordID, e.Detail, humanize.Time(e.CreatedAt),
				})
			}
			fmt.Println(renderTable([]string{"Action", "Table", "Record", "Detail", "When"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only entries whose table or detail contains this text")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete every entry")
	return cmd
}
