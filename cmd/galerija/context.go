package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/config"
	"github.com/erazemk/galerija/internal/logging"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	closeLog   func()
	configErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFlag != nil {
			if err := config.LoadDotEnv(strings.TrimSpace(*c.envFlag)); err != nil {
				c.configErr = err
				return
			}
		}

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}

		logger, closeLog, err := logging.Setup(cfg.Logging)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
		c.closeLog = closeLog
	})
	return c.config, c.configErr
}

func (c *commandContext) close() {
	if c.closeLog != nil {
		c.closeLog()
	}
}

func (c *commandContext) client() *client.Client {
	cfg := c.config
	return client.New(client.Config{
		BaseURL:        cfg.Client.ServerURL,
		TimeoutSeconds: cfg.Client.TimeoutSeconds,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
