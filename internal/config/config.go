package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel        string    `yaml:"log_level"`
	IntervalSeconds int       `yaml:"interval_seconds"`
	Webhook         Webhook   `yaml:"webhook"`
	Accounts        []Account `yaml:"accounts"`
}

// Webhook holds the chat notification endpoint configuration.
type Webhook struct {
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
}

// Account describes one monitored mailbox.
type Account struct {
	Name         string `yaml:"name"`
	Protocol     string `yaml:"protocol"` // "imap" or "pop3"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	UseTLS       *bool  `yaml:"use_tls"`
	Room         string `yaml:"room"`
	IMAPFolder   string `yaml:"imap_folder"`
	LookbackDays int    `yaml:"lookback_days"`
}

// Interval returns the poll interval as a time.Duration.
func (c *Config) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// TLS reports whether the account connection uses TLS, defaulting to true.
func (a *Account) TLS() bool {
	if a.UseTLS == nil {
		return true
	}
	return *a.UseTLS
}

// Lookback returns the cold-start search window, defaulting to 7 days.
func (a *Account) Lookback() int {
	if a.LookbackDays <= 0 {
		return 7
	}
	return a.LookbackDays
}

// Folder returns the IMAP folder name, defaulting to "INBOX".
func (a *Account) Folder() string {
	if a.IMAPFolder == "" {
		return "INBOX"
	}
	return a.IMAPFolder
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		LogLevel: "info",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required")
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	for i, a := range c.Accounts {
		label := a.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if a.Protocol != "imap" && a.Protocol != "pop3" {
			return fmt.Errorf("account %s: protocol must be imap or pop3", label)
		}
		if a.Host == "" {
			return fmt.Errorf("account %s: host is required", label)
		}
		if a.Port == 0 {
			return fmt.Errorf("account %s: port is required", label)
		}
		if a.Room == "" {
			return fmt.Errorf("account %s: room is required", label)
		}
	}
	return nil
}
