package config

// Default returns a configuration populated with defaults suitable for a
// single-host deployment. Source credentials remain empty; Validate
// decides which sources can run without them.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/ward",
			LogDir:  "~/.local/share/ward/logs",
		},
		LLM: LLM{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "openai/gpt-4o-mini",
			TimeoutSeconds: 30,
		},
		CitySearch: CitySearch{
			Enabled:        true,
			TimeoutSeconds: 20,
		},
		Pulse: Pulse{
			Enabled:        true,
			TimeoutSeconds: 20,
		},
		RSS: RSS{
			Enabled:         true,
			TimeoutSeconds:  15,
			MaxItemsPerFeed: 25,
		},
		Pipeline: Pipeline{
			BatchSize:           3,
			BudgetSeconds:       270,
			BackoffSeconds:      []int{2, 5, 15},
			SourcePaceMillis:    500,
			ConfidenceThreshold: 0.65,
			LookaheadDays:       7,
		},
		Schedule: Schedule{
			WindowStartHour: 6,
			WindowEndHour:   7,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Runs:           true,
			Publishes:      false,
			Errors:         true,
		},
		API: API{
			Bind: "127.0.0.1:8740",
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}
