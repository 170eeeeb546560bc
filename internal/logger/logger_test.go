package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DevStd_TextOutput(t *testing.T) {
	var out bytes.Buffer
	l := New(Config{
		Service: "demo",
		Version: "v0.0.1",
		Env:     EnvDev,
		Level:   slog.LevelDebug,
		Output:  &out,
	})

	l.Debug("Hello world", slog.String("room", "AB12CD34"))

	got := out.String()
	if strings.HasPrefix(got, "{") {
		t.Fatalf("expected text output in dev, got JSON: %s", got)
	}
	for _, want := range []string{"Hello world", "service=demo", "env=dev", "version=v0.0.1", "room=AB12CD34", "instance_id="} {
		if !strings.Contains(got, want) {
			t.Errorf("%q missing from %s", want, got)
		}
	}
}

func TestNew_ProdZap_JSONOutput(t *testing.T) {
	var out bytes.Buffer
	l := New(Config{
		Service:    "demo",
		Env:        EnvProd,
		InstanceID: "host-1",
		Output:     &out,
	})

	l.Info("server started", slog.String("addr", ":3001"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &record); err != nil {
		t.Fatalf("expected JSON output from zap backend, got %q: %v", out.String(), err)
	}
	if record["msg"] != "server started" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["service"] != "demo" || record["instance_id"] != "host-1" || record["addr"] != ":3001" {
		t.Errorf("attrs missing: %v", record)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	for _, backend := range []Backend{BackendStd, BackendZap} {
		t.Run(string(backend), func(t *testing.T) {
			var out bytes.Buffer
			l := New(Config{Env: EnvDev, Backend: backend, Level: slog.LevelWarn, Output: &out})

			l.Info("quiet")
			if out.Len() != 0 {
				t.Fatalf("info record leaked at warn level: %s", out.String())
			}
			l.Warn("loud")
			if !strings.Contains(out.String(), "loud") {
				t.Fatalf("warn record missing: %s", out.String())
			}
		})
	}
}

func TestNew_DebugFlag(t *testing.T) {
	var out bytes.Buffer
	l := New(Config{Env: EnvDev, Debug: true, Output: &out})

	l.Debug("dial failed")
	if !strings.Contains(out.String(), "dial failed") {
		t.Fatalf("debug record missing: %s", out.String())
	}
}

func TestParseEnv(t *testing.T) {
	tests := map[string]Env{
		"":           EnvDev,
		"dev":        EnvDev,
		"Production": EnvProd,
		" prod ":     EnvProd,
		"staging":    EnvStage,
		"preprod":    EnvStage,
		"whatever":   EnvDev,
	}
	for raw, want := range tests {
		if got := ParseEnv(raw); got != want {
			t.Errorf("ParseEnv(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "stage")
	if got := DetectEnv(); got != EnvStage {
		t.Errorf("DetectEnv() = %q, want %q", got, EnvStage)
	}
}

func TestEnsureInstanceID(t *testing.T) {
	if got := ensureInstanceID("fixed"); got != "fixed" {
		t.Errorf("ensureInstanceID kept %q", got)
	}
	a, b := ensureInstanceID(""), ensureInstanceID("")
	if a == b {
		t.Errorf("generated instance ids collide: %q", a)
	}
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var out bytes.Buffer
	l := Init(Config{Service: "chat-client", Env: EnvDev, Output: &out})

	if L() != l {
		t.Fatal("L() does not return the initialized logger")
	}
	slog.Info("via default")
	if !strings.Contains(out.String(), "service=chat-client") {
		t.Fatalf("default logger not installed: %s", out.String())
	}
}
