package main

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateConfigRejectsBadAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BindAddr = "not-an-addr"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for malformed bind_addr")
	}
}

func TestValidateConfigRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestValidateConfigRejectsEmptyNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network = "  "
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for empty network")
	}
}

func TestRunDryRun(t *testing.T) {
	var out, errw stringBuf
	code := run([]string{"-dry-run", "-datadir", t.TempDir()}, &out, &errw)
	if code != 0 {
		t.Fatalf("dry-run exit code = %d, stderr=%s", code, errw.String())
	}
	if out.String() == "" {
		t.Fatal("expected dry-run to print effective config")
	}
}

type stringBuf struct{ b []byte }

func (s *stringBuf) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}
func (s *stringBuf) String() string { return string(s.b) }
