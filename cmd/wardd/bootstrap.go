package main

import (
	"log/slog"
	"time"

	"ward/internal/config"
	"ward/internal/fetch"
	"ward/internal/fetch/citysearch"
	"ward/internal/fetch/pulse"
	"ward/internal/fetch/rss"
	"ward/internal/llm"
	"ward/internal/notifications"
	"ward/internal/pipeline"
	"ward/internal/publish"
	"ward/internal/relevance"
	"ward/internal/retry"
	"ward/internal/store"
)

func buildRunner(cfg *config.Config, st *store.Store, logger *slog.Logger) (*pipeline.Runner, error) {
	fetchers, err := buildFetchers(cfg, logger)
	if err != nil {
		return nil, err
	}

	delays := make([]time.Duration, 0, len(cfg.Pipeline.BackoffSeconds))
	for _, seconds := range cfg.Pipeline.BackoffSeconds {
		delays = append(delays, time.Duration(seconds)*time.Second)
	}

	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithCaller(retry.New(delays)))

	filter := relevance.NewFilter(completer, cfg.Pipeline.ConfidenceThreshold)
	gate := publish.NewGate(st, logger)
	notifier := notifications.NewService(cfg)

	return pipeline.NewRunner(cfg, st, gate, filter, notifier, logger, fetchers...), nil
}

func buildFetchers(cfg *config.Config, logger *slog.Logger) ([]fetch.Fetcher, error) {
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
		fetchers = append(fetchers, rss.New(
			time.Duration(cfg.RSS.TimeoutSeconds)*time.Second,
			rss.WithMaxItemsPerFeed(cfg.RSS.MaxItemsPerFeed),
			rss.WithLogger(logger),
		))
	}
	return fetchers, nil
}
