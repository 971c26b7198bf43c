package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

type Config struct {
	Env            string
	NSURL          string
	NSToken        string
	NSAPISecret    string
	TGToken        string
	TGChatID       int64
	AllowedUserIDs []int64
	MediaRoot      string
	MediaBaseURL   string
	AppBaseURL     string
	WebAppDir      string
	Host           string
	Port           string
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		_ = loadDotEnv()
		c, err := FromEnv()
		if err != nil {
			panic("Invalid config: " + err.Error())
		}
		cfg = c
	})
	return cfg
}

// FromEnv reads the configuration from environment variables without
// caching, so tests can call it repeatedly.
func FromEnv() (*Config, error) {
	c := &Config{
		Env:          getEnv("APP_ENV", "development"),
		NSURL:        strings.TrimRight(getEnv("NS_URL", ""), "/"),
		NSToken:      getEnv("NS_TOKEN", ""),
		NSAPISecret:  getEnv("NS_API_SECRET", ""),
		TGToken:      getEnv("TG_TOKEN", ""),
		MediaRoot:    getEnv("MEDIA_ROOT", ""),
		MediaBaseURL: strings.TrimRight(getEnv("MEDIA_BASE_URL", ""), "/"),
		AppBaseURL:   strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		WebAppDir:    getEnv("WEBAPP_DIR", "webapp"),
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8000"),
	}

	if raw := os.Getenv("TG_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TG_CHAT_ID: %q", raw)
		}
		c.TGChatID = id
	}

	ids, err := parseUserIDs(os.Getenv("ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}
	c.AllowedUserIDs = ids

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.NSURL == "" {
		return errors.New("NS_URL is required")
	}
	if c.TGToken == "" {
		return errors.New("TG_TOKEN is required")
	}
	if c.MediaRoot == "" {
		return errors.New("MEDIA_ROOT is required")
	}
	if c.MediaBaseURL == "" {
		return errors.New("MEDIA_BASE_URL is required")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	return nil
}

// AllowedUsers returns the allow-list as a set keyed by Telegram user id.
func (c *Config) AllowedUsers() map[int64]bool {
	set := make(map[int64]bool, len(c.AllowedUserIDs))
	for _, id := range c.AllowedUserIDs {
		set[id] = true
	}
	return set
}

func parseUserIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, chunk := range strings.Split(raw, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		id, err := strconv.ParseInt(chunk, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id: %q", chunk)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadDotEnv() error {
	f, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
