package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

func TestSecretRedaction(t *testing.T) {
	secret := NewSecret("sk-ant-abc123")

	tests := []struct {
		name string
		got  string
	}{
		{"String", secret.String()},
		{"Sprintf %v", fmt.Sprintf("%v", secret)},
		{"Sprintf %s", fmt.Sprintf("%s", secret)},
		{"Sprintf %+v", fmt.Sprintf("%+v", secret)},
		{"Sprintf %#v", fmt.Sprintf("%#v", secret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.Contains(tt.got, "sk-ant-abc123") {
				t.Errorf("%s exposed the secret: %s", tt.name, tt.got)
			}
			if !strings.Contains(tt.got, "REDACTED") {
				t.Errorf("%s = %q, want REDACTED placeholder", tt.name, tt.got)
			}
		})
	}
}

func TestSecretExpose(t *testing.T) {
	secret := NewSecret("sk-ant-abc123")
	if secret.Expose() != "sk-ant-abc123" {
		t.Errorf("Expose() = %q, want sk-ant-abc123", secret.Expose())
	}
	if secret.IsEmpty() {
		t.Error("IsEmpty() = true for non-empty secret")
	}
	if !NewSecret("").IsEmpty() {
		t.Error("IsEmpty() = false for empty secret")
	}
}

func TestSecretJSONInStruct(t *testing.T) {
	type config struct {
		Name   string `json:"name"`
		APIKey Secret `json:"api_key"`
	}

	data, err := json.Marshal(config{Name: "dev", APIKey: NewSecret("sk-ant-secret")})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	want := `{"name":"dev","api_key":"[REDACTED]"}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
}

func TestSecretYAMLRoundTrip(t *testing.T) {
	type config struct {
		APIKey Secret `yaml:"api_key"`
	}

	var cfg config
	if err := yaml.Unmarshal([]byte("api_key: sk-ant-from-file\n"), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if cfg.APIKey.Expose() != "sk-ant-from-file" {
		t.Errorf("Expose() = %q, want sk-ant-from-file", cfg.APIKey.Expose())
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if strings.Contains(string(out), "sk-ant-from-file") {
		t.Errorf("yaml.Marshal() exposed the secret: %s", out)
	}

	var reloaded config
	if err := yaml.Unmarshal(out, &reloaded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if !reloaded.APIKey.IsEmpty() {
		t.Error("redacted placeholder must not load as a key")
	}
}
