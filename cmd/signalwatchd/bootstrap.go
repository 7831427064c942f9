package main

import (
	"log/slog"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/daemon"
	"signalwatch/internal/digest"
	"signalwatch/internal/feed"
	"signalwatch/internal/notifications"
	"signalwatch/internal/pipeline"
	"signalwatch/internal/services/summarizer"
	"signalwatch/internal/services/transcript"
	"signalwatch/internal/store"
)

// bootstrap wires every runtime dependency into a daemon instance.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	source := feed.NewClient(cfg.Feed.BaseURL, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second)
	transcripts := transcript.NewClient(
		cfg.Transcript.BaseURL,
		cfg.Transcript.Languages,
		time.Duration(cfg.Transcript.TimeoutSeconds)*time.Second,
	)
	summaries := summarizer.NewClient(summarizer.Config{
		BaseURL:            cfg.Summarizer.BaseURL,
		Model:              cfg.Summarizer.Model,
		Temperature:        cfg.Summarizer.Temperature,
		MaxTranscriptChars: cfg.Summarizer.MaxTranscriptChars,
		TimeoutSeconds:     cfg.Summarizer.TimeoutSeconds,
	})

	notifier := notifications.NewService(cfg)
	p := pipeline.New(
		cfg,
		st,
		source,
		pipeline.NewTranscriptStage(transcripts, st),
		pipeline.NewSummaryStage(summaries, st),
		logger,
		notifier,
	)
	digests := digest.NewBuilder(cfg, st, logger)

	d, err := daemon.New(cfg, st, p, digests, notifier, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return d, nil
}
