package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func stubLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	original := lookPath
	lookPath = func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = original })
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Emulator.BootTimeoutDuration() != 60*time.Second {
		t.Errorf("boot timeout = %v, want 60s", cfg.Emulator.BootTimeoutDuration())
	}
	if cfg.Emulator.VideoTimeoutDuration() != 30*time.Second {
		t.Errorf("video timeout = %v, want 30s", cfg.Emulator.VideoTimeoutDuration())
	}
	if cfg.Emulator.CaptureTimeoutDuration() != 5*time.Second {
		t.Errorf("capture timeout = %v, want 5s", cfg.Emulator.CaptureTimeoutDuration())
	}
	if cfg.Emulator.PollIntervalDuration() != time.Second {
		t.Errorf("poll interval = %v, want 1s", cfg.Emulator.PollIntervalDuration())
	}
	if cfg.Emulator.StreamInterval() != 100*time.Millisecond {
		t.Errorf("stream interval = %v, want 100ms", cfg.Emulator.StreamInterval())
	}
	if len(cfg.Server.AllowOrigins) != 1 || cfg.Server.AllowOrigins[0] != "http://localhost:3000" {
		t.Errorf("allow origins = %v", cfg.Server.AllowOrigins)
	}
}

func TestResolvePrefersPath(t *testing.T) {
	stubLookPath(t, map[string]string{"adb": "/usr/bin/adb"})

	cfg := Default()
	cfg.Tools.SDKRoot = "/opt/android"
	cfg.Resolve()

	if cfg.Tools.ADB != "/usr/bin/adb" {
		t.Errorf("adb = %q, want PATH hit", cfg.Tools.ADB)
	}
	want := filepath.Join("/opt/android", "emulator", "emulator")
	if cfg.Tools.Emulator != want {
		t.Errorf("emulator = %q, want %q", cfg.Tools.Emulator, want)
	}
}

func TestResolveKeepsExplicitPaths(t *testing.T) {
	stubLookPath(t, map[string]string{"adb": "/usr/bin/adb", "emulator": "/usr/bin/emulator"})

	cfg := Default()
	cfg.Tools.ADB = "/custom/adb"
	cfg.Resolve()

	if cfg.Tools.ADB != "/custom/adb" {
		t.Errorf("explicit adb path overwritten: %q", cfg.Tools.ADB)
	}
	if cfg.Tools.Emulator != "/usr/bin/emulator" {
		t.Errorf("emulator = %q", cfg.Tools.Emulator)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ANDROID_SDK_ROOT": "/sdk",
		"AVD_BIND":         "127.0.0.1:9000",
		"AVD_PUBLIC_URL":   "http://emu.local:9000",
		"LOG_LEVEL":        "debug",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Tools.SDKRoot != "/sdk" {
		t.Errorf("sdk root = %q", cfg.Tools.SDKRoot)
	}
	if cfg.Server.Bind != "127.0.0.1:9000" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
	if cfg.Server.PublicURL != "http://emu.local:9000" {
		t.Errorf("public url = %q", cfg.Server.PublicURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	stubLookPath(t, nil)
	t.Setenv("ANDROID_SDK_ROOT", "")
	t.Setenv("ANDROID_HOME", "")
	t.Setenv("AVD_BIND", "")
	t.Setenv("AVD_PUBLIC_URL", "")
	t.Setenv("LOG_LEVEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[tools]
sdk_root = "/opt/sdk"

[server]
bind = ":8100"
public_url = "http://example.test:8100/"

[emulator]
boot_timeout = 90
browser_url = "https://example.org"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Bind != ":8100" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
	if cfg.Server.PublicURL != "http://example.test:8100" {
		t.Errorf("public url not trimmed: %q", cfg.Server.PublicURL)
	}
	if cfg.Emulator.BootTimeout != 90 {
		t.Errorf("boot timeout = %d", cfg.Emulator.BootTimeout)
	}
	if cfg.Emulator.VideoTimeout != 30 {
		t.Errorf("video timeout should keep default, got %d", cfg.Emulator.VideoTimeout)
	}
	if cfg.Tools.ADB != filepath.Join("/opt/sdk", "platform-tools", "adb") {
		t.Errorf("adb = %q", cfg.Tools.ADB)
	}
}

func TestLoadWithoutTools(t *testing.T) {
	stubLookPath(t, nil)
	t.Setenv("ANDROID_SDK_ROOT", "")
	t.Setenv("ANDROID_HOME", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nbind = \":8000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "adb not found") {
		t.Fatalf("expected adb not found, got %v", err)
	}
}

func TestResolveWithoutSDKRoot(t *testing.T) {
	stubLookPath(t, map[string]string{"adb": "/usr/bin/adb"})

	cfg := Default()
	cfg.Resolve()

	if cfg.Tools.ADB != "/usr/bin/adb" {
		t.Errorf("adb = %q", cfg.Tools.ADB)
	}
	if cfg.Tools.Emulator != "" {
		t.Errorf("emulator = %q, want empty without sdk root", cfg.Tools.Emulator)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "emulator not found") {
		t.Errorf("Validate = %v, want emulator not found", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLoadRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nbind="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Tools.ADB = "/adb"
	cfg.Tools.Emulator = "/emulator"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := cfg
	bad.Emulator.PollInterval = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero poll interval")
	}

	bad = cfg
	bad.Server.PublicURL = "not-a-url"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for relative public url")
	}

	bad = cfg
	bad.Server.Bind = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty bind")
	}
}
