package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCollection(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Server.ListingCacheSize < 0 {
		return errors.New("server.listing_cache_size must not be negative")
	}
	if c.Server.ListingCacheTTLSeconds < 0 {
		return errors.New("server.listing_cache_ttl_seconds must not be negative")
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return errors.New("server.shutdown_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCollection() error {
	if c.Collection.Capacity < 1 {
		return errors.New("collection.capacity must be at least 1")
	}
	if len(c.Collection.AllowedTypes) == 0 {
		return errors.New("collection.allowed_types must list at least one type")
	}
	for _, t := range c.Collection.AllowedTypes {
		if !strings.Contains(t, "/") {
			return fmt.Errorf("collection.allowed_types: %q is not a MIME type", t)
		}
	}
	return nil
}

func (c *Config) validateClient() error {
	u, err := url.Parse(c.Client.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("client.server_url %q must be an http(s) URL", c.Client.ServerURL)
	}
	if c.Client.TimeoutSeconds < 0 {
		return errors.New("client.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be auto, text or json", c.Logging.Format)
	}
	return nil
}
