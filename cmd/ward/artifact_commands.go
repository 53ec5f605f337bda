package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ward/internal/store"
)

func newArtifactCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect and transition published artifacts",
	}
	cmd.AddCommand(newArtifactListCommand(ctx))
	cmd.AddCommand(newArtifactShowCommand(ctx))
	cmd.AddCommand(newArtifactTransitionCommand(ctx, "approve", "Approve a pending artifact for publication", store.StatusPublished))
	cmd.AddCommand(newArtifactTransitionCommand(ctx, "reject", "Reject a pending artifact", store.StatusRejected))
	cmd.AddCommand(newArtifactTransitionCommand(ctx, "suspend", "Suspend a published artifact", store.StatusSuspended))
	cmd.AddCommand(newArtifactTransitionCommand(ctx, "resume", "Republish a suspended artifact", store.StatusPublished))
	cmd.AddCommand(newArtifactTransitionCommand(ctx, "archive", "Archive a published artifact", store.StatusArchived))
	cmd.AddCommand(newArtifactResetCommand(ctx))
	return cmd
}

func newArtifactListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			statuses := make([]store.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				parsed, ok := store.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, parsed)
			}

			artifacts, err := st.ListArtifacts(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(artifacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No artifacts found.")
				return nil
			}

			rows := make([][]string, 0, len(artifacts))
			for _, a := range artifacts {
				rows = append(rows, []string{
					strconv.FormatInt(a.ID, 10),
					a.NeighborhoodID,
					string(a.Kind),
					string(a.Status),
					a.PeriodKey.LocalDate(),
					a.Title,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Neighborhood", "Kind", "Status", "Date", "Title"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newArtifactShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one artifact's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid artifact id %q", args[0])
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			artifact, err := st.GetArtifactByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if artifact == nil {
				return fmt.Errorf("artifact %d not found", id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s] %s (%s)\n\n", artifact.Title, artifact.Status, artifact.PeriodKey, artifact.Slug)
			fmt.Fprintln(out, artifact.Content)
			return nil
		},
	}
}

func newArtifactTransitionCommand(ctx *commandContext, use, short string, to store.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid artifact id %q", args[0])
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			artifact, err := st.TransitionArtifact(cmd.Context(), id, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Artifact %d is now %s\n", artifact.ID, artifact.Status)
			return nil
		},
	}
}

func newArtifactResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Reset a rejected artifact back to draft for regeneration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid artifact id %q", args[0])
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			artifact, err := st.ResetRejected(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Artifact %d reset to %s\n", artifact.ID, artifact.Status)
			return nil
		},
	}
}
