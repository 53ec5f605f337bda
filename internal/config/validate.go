package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects configurations the pipeline cannot run with. Missing
// source credentials for enabled sources are configuration errors and
// abort before any work is attempted.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir is required")
	}

	if strings.TrimSpace(c.LLM.APIKey) == "" {
		problems = append(problems, "llm.api_key is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		problems = append(problems, "llm.model is required")
	}

	if c.CitySearch.Enabled && c.CitySearch.APIKey == "" {
		problems = append(problems, "citysearch.api_key is required when citysearch is enabled")
	}
	if c.CitySearch.Enabled && c.CitySearch.BaseURL == "" {
		problems = append(problems, "citysearch.base_url is required when citysearch is enabled")
	}
	if c.Pulse.Enabled && c.Pulse.APIKey == "" {
		problems = append(problems, "pulse.api_key is required when pulse is enabled")
	}
	if c.Pulse.Enabled && c.Pulse.BaseURL == "" {
		problems = append(problems, "pulse.base_url is required when pulse is enabled")
	}

	if !c.CitySearch.Enabled && !c.Pulse.Enabled && !c.RSS.Enabled {
		problems = append(problems, "at least one content source must be enabled")
	}

	if c.Schedule.WindowStartHour < 0 || c.Schedule.WindowStartHour > 23 {
		problems = append(problems, "schedule.window_start_hour must be within [0,23]")
	}
	if c.Schedule.WindowEndHour < 1 || c.Schedule.WindowEndHour > 24 {
		problems = append(problems, "schedule.window_end_hour must be within [1,24]")
	}
	if c.Schedule.WindowStartHour >= c.Schedule.WindowEndHour {
		problems = append(problems, "schedule window must be a non-empty interval")
	}

	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		problems = append(problems, "pipeline.confidence_threshold must be within [0,1]")
	}
	for _, delay := range c.Pipeline.BackoffSeconds {
		if delay <= 0 {
			problems = append(problems, "pipeline.backoff_seconds entries must be positive")
			break
		}
	}

	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
