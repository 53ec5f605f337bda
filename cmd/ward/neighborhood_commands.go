package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ward/internal/store"
)

func newNeighborhoodCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "neighborhood",
		Aliases: []string{"nbhd"},
		Short:   "Manage onboarded neighborhoods",
	}
	cmd.AddCommand(newNeighborhoodAddCommand(ctx))
	cmd.AddCommand(newNeighborhoodListCommand(ctx))
	return cmd
}

func newNeighborhoodAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var city string
	var country string
	var timezone string
	var feeds []string
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Onboard a neighborhood (or update an existing one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("neighborhood id required")
			}
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name required")
			}
			if strings.TrimSpace(city) == "" {
				return fmt.Errorf("--city required")
			}
			if _, err := time.LoadLocation(timezone); err != nil {
				return fmt.Errorf("invalid timezone %q: %w", timezone, err)
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			neighborhood := store.Neighborhood{
				ID:       id,
				Name:     name,
				City:     city,
				Country:  country,
				Timezone: timezone,
				Active:   !inactive,
				FeedURLs: feeds,
			}
			if err := st.UpsertNeighborhood(cmd.Context(), neighborhood); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved neighborhood %s (%s, %s)\n", id, name, city)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&city, "city", "", "City the neighborhood belongs to")
	cmd.Flags().StringVar(&country, "country", "", "ISO country code")
	cmd.Flags().StringVar(&timezone, "timezone", "Europe/Stockholm", "IANA timezone")
	cmd.Flags().StringSliceVar(&feeds, "feed", nil, "RSS feed URL (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Onboard without scheduling runs")
	return cmd
}

func newNeighborhoodListCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List neighborhoods",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			neighborhoods, err := st.ListNeighborhoods(cmd.Context(), !all)
			if err != nil {
				return err
			}
			if len(neighborhoods) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No neighborhoods onboarded.")
				return nil
			}

			rows := make([][]string, 0, len(neighborhoods))
			for _, n := range neighborhoods {
				rows = append(rows, []string{
					n.ID,
					n.Name,
					n.City,
					n.Timezone,
					strconv.FormatBool(n.Active),
					strconv.Itoa(len(n.FeedURLs)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "City", "Timezone", "Active", "Feeds"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive neighborhoods")
	return cmd
}
