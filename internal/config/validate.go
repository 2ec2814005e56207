package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateSlicing(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"api.poll_interval_seconds":   c.API.PollIntervalSeconds,
		"api.request_timeout_seconds": c.API.RequestTimeoutSeconds,
	})
}

func (c *Config) validateWhisper() error {
	switch c.Whisper.Backend {
	case "whisperx":
	default:
		return fmt.Errorf("whisper.backend: unsupported value %q", c.Whisper.Backend)
	}
	switch c.Whisper.Device {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("whisper.device must be cpu or cuda, got %q", c.Whisper.Device)
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	if c.Segmentation.MinWords < 1 {
		return errors.New("segmentation.min_words must be >= 1")
	}
	return nil
}

func (c *Config) validateSlicing() error {
	if c.Slicing.PaddingMS < 0 {
		return errors.New("slicing.padding_ms must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"slicing.placeholder_ms": c.Slicing.PlaceholderMS,
		"slicing.concurrency":    c.Slicing.Concurrency,
	})
}

func (c *Config) validateTTS() error {
	switch c.TTS.Provider {
	case "", "gemini", "chatterbox":
		return nil
	default:
		return fmt.Errorf("tts.provider must be gemini or chatterbox, got %q", c.TTS.Provider)
	}
}

func (c *Config) validateWorker() error {
	switch c.Worker.Source {
	case "api", "queue":
		return nil
	default:
		return fmt.Errorf("worker.source must be api or queue, got %q", c.Worker.Source)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL such as https://ntfy.sh/readrepeat, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}
