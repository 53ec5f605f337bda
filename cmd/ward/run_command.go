package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ward/internal/pipeline"
	"ward/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var forceFlag bool
	var neighborhoods []string
	var batchFlag int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a content-generation run now",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(kindFlag)
			if err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runner, err := ctx.buildRunner(st)
			if err != nil {
				return err
			}

			summary, err := runner.Run(cmd.Context(), kind, pipeline.Options{
				Force:     forceFlag,
				Only:      neighborhoods,
				BatchSize: batchFlag,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.Attempted == 0 {
				fmt.Fprintf(out, "Nothing to do: %s\n", summary.Reason)
				return nil
			}
			fmt.Fprintf(out, "Run %s finished: %d created, %d already published, %d failed, %d skipped (%.1fs)\n",
				summary.RunID, summary.Created, summary.AlreadyPublished, summary.Failed, summary.Skipped, summary.ElapsedSeconds)
			if summary.Partial {
				fmt.Fprintf(out, "Partial: %s\n", summary.Reason)
			}
			for _, message := range summary.Errors {
				fmt.Fprintf(out, "  error: %s\n", message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", string(store.KindDailyBrief), "Run kind (daily_brief, look_ahead, news, or alert)")
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Bypass the morning window and satisfied checks")
	cmd.Flags().StringSliceVar(&neighborhoods, "neighborhood", nil, "Restrict the run to specific neighborhood IDs")
	cmd.Flags().IntVar(&batchFlag, "batch", 0, "Override the configured batch size for this run")
	return cmd
}

func parseKind(raw string) (store.Kind, error) {
	kind, ok := store.ParseKind(raw)
	if !ok {
		return "", fmt.Errorf("unknown run kind %q (expected daily_brief, look_ahead, news, or alert)", raw)
	}
	return kind, nil
}
