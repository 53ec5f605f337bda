package config

import "strings"

// normalize expands paths and trims string fields so validation and
// downstream consumers see canonical values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	c.CitySearch.APIKey = strings.TrimSpace(c.CitySearch.APIKey)
	c.CitySearch.BaseURL = strings.TrimRight(strings.TrimSpace(c.CitySearch.BaseURL), "/")
	c.Pulse.APIKey = strings.TrimSpace(c.Pulse.APIKey)
	c.Pulse.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pulse.BaseURL), "/")

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = 3
	}
	if c.Pipeline.BudgetSeconds <= 0 {
		c.Pipeline.BudgetSeconds = 270
	}
	if len(c.Pipeline.BackoffSeconds) == 0 {
		c.Pipeline.BackoffSeconds = []int{2, 5, 15}
	}
	if c.Pipeline.ConfidenceThreshold <= 0 {
		c.Pipeline.ConfidenceThreshold = 0.65
	}
	if c.Pipeline.LookaheadDays <= 0 {
		c.Pipeline.LookaheadDays = 7
	}
	if c.RSS.MaxItemsPerFeed <= 0 {
		c.RSS.MaxItemsPerFeed = 25
	}
	return nil
}
