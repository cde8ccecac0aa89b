package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// OperatorConfig maps a Telegram account onto a backend identity and role.
type OperatorConfig struct {
	TelegramID int64  `yaml:"telegram_id"`
	UserID     string `yaml:"user_id"`
	Role       string `yaml:"role"`
	TenantID   string `yaml:"tenant_id,omitempty"`
	BranchID   string `yaml:"branch_id,omitempty"`
	Name       string `yaml:"name,omitempty"`
}

// OperatorsConfig is the root configuration for operators.yaml.
type OperatorsConfig struct {
	Operators []OperatorConfig `yaml:"operators"`
}

var validRoles = map[string]bool{
	"super_admin":  true,
	"tenant_admin": true,
	"branch_admin": true,
}

// LoadOperators loads and validates the operator list from a YAML file.
func LoadOperators(path string) (*OperatorsConfig, error) {
	if path == "" {
		path = "configs/operators.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operators config: %w", err)
	}

	var cfg OperatorsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse operators config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate operators config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the operator list for errors.
func (c *OperatorsConfig) Validate() error {
	seen := make(map[int64]bool)
	for i, op := range c.Operators {
		if op.TelegramID <= 0 {
			return fmt.Errorf("operator[%d]: telegram_id must be positive, got %d", i, op.TelegramID)
		}
		if seen[op.TelegramID] {
			return fmt.Errorf("operator[%d]: duplicate telegram_id %d", i, op.TelegramID)
		}
		seen[op.TelegramID] = true

		if op.UserID == "" {
			return fmt.Errorf("operator[%d]: user_id is required", i)
		}
		if !validRoles[op.Role] {
			return fmt.Errorf("operator[%d]: unknown role '%s'", i, op.Role)
		}
		if op.Role == "tenant_admin" && op.TenantID == "" {
			return fmt.Errorf("operator[%d]: tenant_admin requires tenant_id", i)
		}
		if op.Role == "branch_admin" && op.BranchID == "" {
			return fmt.Errorf("operator[%d]: branch_admin requires branch_id", i)
		}
	}
	return nil
}

// ByTelegramID returns the operator for a Telegram account, or nil.
func (c *OperatorsConfig) ByTelegramID(id int64) *OperatorConfig {
	for i := range c.Operators {
		if c.Operators[i].TelegramID == id {
			return &c.Operators[i]
		}
	}
	return nil
}

// WatchOperators reloads operators.yaml on change and calls onUpdate with
// the latest config. It performs an initial load before entering the
// watch loop.
func WatchOperators(ctx context.Context, path string, interval time.Duration, onUpdate func(*OperatorsConfig)) error {
	if path == "" {
		path = "configs/operators.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadOperators(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadOperators(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
