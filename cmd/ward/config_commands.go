package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ward/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set llm.api_key and source credentials before running Ward.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	var pathFlag string

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Check that the configuration loads and passes validation",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := config.Load(pathFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !exists {
				fmt.Fprintf(out, "No config file at %s; defaults validated.\n", resolved)
				return nil
			}
			fmt.Fprintf(out, "Configuration at %s is valid.\n", resolved)
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(out, "Note: notifications are disabled (no ntfy_topic).")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Configuration file path")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var pathFlag string

	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration with secrets redacted",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := config.Load(pathFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := resolved
			if !exists {
				source = "built-in defaults"
			}
			fmt.Fprintf(out, "# source: %s\n", source)
			fmt.Fprintf(out, "data_dir = %q\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log_dir = %q\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "llm.model = %q\n", cfg.LLM.Model)
			fmt.Fprintf(out, "llm.api_key = %q\n", redact(cfg.LLM.APIKey))
			fmt.Fprintf(out, "citysearch.enabled = %t\n", cfg.CitySearch.Enabled)
			fmt.Fprintf(out, "pulse.enabled = %t\n", cfg.Pulse.Enabled)
			fmt.Fprintf(out, "rss.enabled = %t\n", cfg.RSS.Enabled)
			fmt.Fprintf(out, "pipeline.batch_size = %d\n", cfg.Pipeline.BatchSize)
			fmt.Fprintf(out, "pipeline.budget_seconds = %d\n", cfg.Pipeline.BudgetSeconds)
			fmt.Fprintf(out, "pipeline.confidence_threshold = %.2f\n", cfg.Pipeline.ConfidenceThreshold)
			fmt.Fprintf(out, "schedule.window = [%02d:00, %02d:00)\n", cfg.Schedule.WindowStartHour, cfg.Schedule.WindowEndHour)
			fmt.Fprintf(out, "api.bind = %q\n", cfg.API.Bind)
			fmt.Fprintf(out, "api.token = %q\n", redact(cfg.API.Token))
			fmt.Fprintf(out, "metrics.enabled = %t\n", cfg.Metrics.Enabled)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Configuration file path")
	return cmd
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
