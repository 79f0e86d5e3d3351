package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const envPrefix = "GALERIJA_"

// applyEnv overrides file values with GALERIJA_* environment variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"ADDR":           &c.Server.Addr,
		"DATA_DIR":       &c.Server.DataDir,
		"UPLOADS_DIR":    &c.Server.UploadsDir,
		"DATABASE":       &c.Server.Database,
		"JOURNAL_DIR":    &c.Server.JournalDir,
		"ALLOWED_ORIGIN": &c.Server.AllowedOrigin,
		"SERVER_URL":     &c.Client.ServerURL,
		"LOG_LEVEL":      &c.Logging.Level,
		"LOG_FORMAT":     &c.Logging.Format,
		"LOG_FILE":       &c.Logging.File,
	}
	for key, dst := range strs {
		if value, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"CAPACITY":               &c.Collection.Capacity,
		"LISTING_CACHE_SIZE":     &c.Server.ListingCacheSize,
		"CLIENT_TIMEOUT_SECONDS": &c.Client.TimeoutSeconds,
	}
	for key, dst := range ints {
		if value, ok := os.LookupEnv(envPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	if value, ok := os.LookupEnv(envPrefix + "MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_BODY_BYTES: %w", envPrefix, err)
		}
		c.Server.MaxBodyBytes = n
	}

	if value, ok := os.LookupEnv(envPrefix + "ALLOWED_TYPES"); ok {
		c.Collection.AllowedTypes = splitList(value)
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Server.DataDir, err = expandPath(c.Server.DataDir); err != nil {
		return fmt.Errorf("server.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Server.UploadsDir) == "" {
		c.Server.UploadsDir = filepath.Join(c.Server.DataDir, "uploads")
	}
	if c.Server.UploadsDir, err = expandPath(c.Server.UploadsDir); err != nil {
		return fmt.Errorf("server.uploads_dir: %w", err)
	}
	if strings.TrimSpace(c.Server.Database) == "" {
		c.Server.Database = filepath.Join(c.Server.DataDir, "galerija.sqlite3")
	}
	if c.Server.Database, err = expandPath(c.Server.Database); err != nil {
		return fmt.Errorf("server.database: %w", err)
	}
	if strings.TrimSpace(c.Server.JournalDir) == "" {
		c.Server.JournalDir = filepath.Join(c.Server.DataDir, "wal")
	}
	if c.Server.JournalDir, err = expandPath(c.Server.JournalDir); err != nil {
		return fmt.Errorf("server.journal_dir: %w", err)
	}
	if c.Logging.File != "" {
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}

	c.Server.AllowedOrigin = strings.TrimSpace(c.Server.AllowedOrigin)
	c.Client.ServerURL = strings.TrimRight(strings.TrimSpace(c.Client.ServerURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	types := c.Collection.AllowedTypes[:0]
	for _, t := range c.Collection.AllowedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}
	c.Collection.AllowedTypes = types
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
