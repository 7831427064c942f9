package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.DigestDir, err = expandPath(c.Paths.DigestDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)

	c.Feed.BaseURL = strings.TrimSpace(c.Feed.BaseURL)
	c.Transcript.BaseURL = strings.TrimSpace(c.Transcript.BaseURL)
	c.Summarizer.BaseURL = strings.TrimSpace(c.Summarizer.BaseURL)
	c.Summarizer.Model = strings.TrimSpace(c.Summarizer.Model)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	for i := range c.Channels {
		ch := &c.Channels[i]
		ch.ID = strings.TrimSpace(ch.ID)
		ch.Name = strings.TrimSpace(ch.Name)
		ch.URL = strings.TrimSpace(ch.URL)
		ch.Domain = strings.TrimSpace(ch.Domain)
		if ch.Name == "" {
			ch.Name = ch.ID
		}
		if ch.Domain == "" {
			ch.Domain = "general"
		}
		if ch.URL == "" && ch.ID != "" {
			ch.URL = fmt.Sprintf("https://www.youtube.com/channel/%s", ch.ID)
		}
	}

	langs := make([]string, 0, len(c.Transcript.Languages))
	for _, lang := range c.Transcript.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	c.Transcript.Languages = langs

	return nil
}
