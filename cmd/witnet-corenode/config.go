package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Config is the node's flat configuration surface, decoded from flags
// (spec.md SPEC_FULL.md §4: "a flat Config struct decoded from flags").
// Mirrors the teacher's node.Config shape field-for-field where the
// concern carries over (network/datadir/bind/log level), dropping p2p
// fields the teacher's Config carries that this module's scope (spec.md
// §1 Non-goals: p2p/sync wire protocol) does not implement.
type Config struct {
	Network  string
	DataDir  string
	BindAddr string
	LogLevel string
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// DefaultDataDir mirrors the teacher's node.DefaultDataDir, namespaced to
// this project instead of rubin.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".witnet-corenode"
	}
	return filepath.Join(home, ".witnet-corenode")
}

// DefaultConfig returns the baseline devnet configuration flags start
// from, matching the teacher's node.DefaultConfig constructor pattern.
func DefaultConfig() Config {
	return Config{
		Network:  "devnet",
		DataDir:  DefaultDataDir(),
		BindAddr: "0.0.0.0:21337",
		LogLevel: "info",
	}
}

// ValidateConfig defensively normalizes and checks a Config before it is
// used to open storage, adapted from the teacher's node.ValidateConfig.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if err := validateAddr(cfg.BindAddr); err != nil {
		return fmt.Errorf("invalid bind_addr: %w", err)
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}
