package main

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"signalwatch/internal/config"
	"signalwatch/internal/feed"
	"signalwatch/internal/logging"
	"signalwatch/internal/notifications"
	"signalwatch/internal/pipeline"
	"signalwatch/internal/services/summarizer"
	"signalwatch/internal/services/transcript"
	"signalwatch/internal/store"
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

// withStore opens the store for one command invocation.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// buildPipeline wires a fully functional pipeline for one-shot commands.
func (c *commandContext) buildPipeline(cfg *config.Config, st *store.Store) *pipeline.Pipeline {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		logger = logging.NewNop()
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
	return pipeline.New(
		cfg,
		st,
		source,
		pipeline.NewTranscriptStage(transcripts, st),
		pipeline.NewSummaryStage(summaries, st),
		logger,
		notifications.NewService(cfg),
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
