// Package config resolves runtime configuration for the counters service.
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Environment variables always win.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the service version reported in the resource identity.
const Version = "1.0.0"

// Default identity and timing constants. The export interval doubles as the
// export timeout so a slow export cannot overlap the next scheduled one.
const (
	DefaultNamespace   = "counters"
	DefaultServiceName = "counters-test"
	DefaultPort        = "8080"

	ExportInterval     = 10 * time.Second
	BackgroundInterval = 2 * time.Second
)

// Config holds everything the process needs to start. Fields map directly to
// the environment variables documented in the README.
type Config struct {
	// Identity
	Namespace      string `yaml:"namespace"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	ProjectID      string `yaml:"project_id"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// HTTP
	Port string `yaml:"port"`

	// Platform signals. These are read-only facts about the environment and
	// are not settable via the YAML file.
	KubernetesHost        string `yaml:"-"`
	PodName               string `yaml:"-"`
	FunctionTarget        string `yaml:"-"`
	GenericTaskWorkaround bool   `yaml:"-"`

	// Export
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Load builds the configuration from defaults, the optional config file
// named by COUNTERS_CONFIG_FILE, and the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Namespace:      DefaultNamespace,
		ServiceName:    DefaultServiceName,
		ServiceVersion: Version,
		LogLevel:       "INFO",
		Port:           DefaultPort,
	}

	if path := os.Getenv("COUNTERS_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyFile overlays values from a YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays values from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.ProjectID = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}

	// Platform signals
	c.KubernetesHost = os.Getenv("KUBERNETES_SERVICE_HOST")
	c.PodName = os.Getenv("POD_NAME")
	c.FunctionTarget = os.Getenv("FUNCTION_TARGET")
	if v := os.Getenv("OTEL_GENERIC_TASK_WORKAROUND"); v != "" {
		c.GenericTaskWorkaround = v == "true" || v == "1"
	}
}

// OnKubernetes reports whether the process runs under a container
// orchestrator, based on the service-host signal injected into every pod.
func (c *Config) OnKubernetes() bool {
	return c.KubernetesHost != ""
}

// OnManagedFunction reports whether the process runs under a managed
// function platform.
func (c *Config) OnManagedFunction() bool {
	return c.FunctionTarget != ""
}
