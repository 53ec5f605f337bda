package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ward/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show artifact counts and the latest run",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.ArtifactStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			rows := make([][]string, 0, len(stats))
			total := 0
			for _, status := range store.AllStatuses() {
				count, ok := stats[status]
				if !ok {
					continue
				}
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
				total += count
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
			rows = append(rows, []string{"total", strconv.Itoa(total)})

			fmt.Fprintln(out, "Artifacts")
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))

			for _, kind := range []store.Kind{store.KindDailyBrief, store.KindLookAhead} {
				run, err := st.LatestRun(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if run == nil {
					continue
				}
				fmt.Fprintf(out, "\nLatest %s run: %s started %s", kind, run.ID,
					run.StartedAt.Local().Format(time.RFC1123))
				if run.FinishedAt != nil {
					fmt.Fprintf(out, ", finished %s", run.FinishedAt.Local().Format(time.RFC1123))
				}
				fmt.Fprintln(out)
				if run.SummaryJSON != "" {
					var pretty map[string]any
					if err := json.Unmarshal([]byte(run.SummaryJSON), &pretty); err == nil {
						for _, field := range []string{"created", "already_published", "failed", "skipped"} {
							if value, ok := pretty[field]; ok {
								fmt.Fprintf(out, "  %s: %v\n", field, value)
							}
						}
					}
				}
			}
			return nil
		},
	}
}
