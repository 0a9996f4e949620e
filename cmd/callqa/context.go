package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"callqa/internal/auth"
	"callqa/internal/config"
	"callqa/internal/history"
	"callqa/internal/logging"
	"callqa/internal/services/qaapi"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue builds the command logger once. A logger that cannot open its
// log file falls back to stderr only.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			level, format := "info", "console"
			if cfg != nil {
				level, format = cfg.Logging.Level, cfg.Logging.Format
			}
			logger, err = logging.New(logging.Options{Level: level, Format: format})
			if err != nil {
				logger = logging.NewNop()
			}
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) tokenStore() (*auth.FileTokenStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return auth.NewFileTokenStore(cfg.Auth.TokenFile), nil
}

func (c *commandContext) newClient() (*qaapi.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := qaapi.NewClient(cfg.API.BaseURL,
		qaapi.WithTimeout(cfg.RequestTimeout()),
		qaapi.WithTokenProvider(tokenProvider(cfg)),
		qaapi.WithLogger(c.loggerValue()),
	)
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}
	return client, nil
}

// tokenProvider prefers an inline or environment token over the token file.
func tokenProvider(cfg *config.Config) auth.TokenProvider {
	return auth.ChainProvider{auth.StaticToken(cfg.Auth.Token), auth.NewFileTokenStore(cfg.Auth.TokenFile)}
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
