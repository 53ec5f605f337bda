package main

import (
	"strings"
	"sync"
	"time"

	"ward/internal/config"
	"ward/internal/fetch"
	"ward/internal/fetch/citysearch"
	"ward/internal/fetch/pulse"
	"ward/internal/fetch/rss"
	"ward/internal/llm"
	"ward/internal/logging"
	"ward/internal/notifications"
	"ward/internal/pipeline"
	"ward/internal/publish"
	"ward/internal/relevance"
	"ward/internal/retry"
	"ward/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openStore opens the artifact store; callers own the Close.
func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

// buildRunner assembles the full pipeline from configuration.
func (c *commandContext) buildRunner(st *store.Store) (*pipeline.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
	if err != nil {
		return nil, err
	}

	fetchers, err := buildFetchers(cfg)
	if err != nil {
		return nil, err
	}

	delays := make([]time.Duration, 0, len(cfg.Pipeline.BackoffSeconds))
	for _, seconds := range cfg.Pipeline.BackoffSeconds {
		delays = append(delays, time.Duration(seconds)*time.Second)
	}
	caller := retry.New(delays)

	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithCaller(caller))

	filter := relevance.NewFilter(completer, cfg.Pipeline.ConfidenceThreshold)
	gate := publish.NewGate(st, logger)
	notifier := notifications.NewService(cfg)

	return pipeline.NewRunner(cfg, st, gate, filter, notifier, logger, fetchers...), nil
}

func buildFetchers(cfg *config.Config) ([]fetch.Fetcher, error) {
	var fetchers []fetch.Fetcher
	if cfg.CitySearch.Enabled {
		client, err := citysearch.New(
			cfg.CitySearch.APIKey,
			cfg.CitySearch.BaseURL,
			time.Duration(cfg.CitySearch.TimeoutSeconds)*time.Second,
		)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, client)
	}
	if cfg.Pulse.Enabled {
		client, err := pulse.New(
			cfg.Pulse.APIKey,
			cfg.Pulse.BaseURL,
			time.Duration(cfg.Pulse.TimeoutSeconds)*time.Second,
		)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, client)
	}
	if cfg.RSS.Enabled {
		collector := rss.New(
			time.Duration(cfg.RSS.TimeoutSeconds)*time.Second,
			rss.WithMaxItemsPerFeed(cfg.RSS.MaxItemsPerFeed),
		)
		fetchers = append(fetchers, collector)
	}
	return fetchers, nil
}
