// Package config reads and validates YAML scan configuration files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// namePattern matches valid target and package names: alphanumeric plus
// the separator characters package managers accept.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9._+-]+$`)

// Config is a full scan configuration: which hosts to classify and which
// package requirements to verify on each of them.
type Config struct {
	Targets  []Target      `yaml:"targets" validate:"dive"`
	Packages []Requirement `yaml:"packages" validate:"dive"`
}

// Target describes one host to classify.
type Target struct {
	// Name labels the target in reports.
	Name string `yaml:"name" validate:"required,hostenv_name"`

	// Shell selects how commands reach the target. "local" runs them on
	// this machine; it is also the default.
	Shell string `yaml:"shell" validate:"omitempty,oneof=local"`

	// Sudo runs privileged commands through sudo.
	Sudo bool `yaml:"sudo"`

	// Timeout bounds each probe command, for example "30s". Empty means
	// the runner's default.
	Timeout string `yaml:"timeout" validate:"omitempty,hostenv_duration"`
}

// Requirement is one package compliance rule: the package must be
// installed, and at least MinVersion when one is given.
type Requirement struct {
	Name       string `yaml:"name" validate:"required,hostenv_name"`
	MinVersion string `yaml:"min_version"`
}

// TimeoutDuration returns the parsed Timeout, or zero when unset.
func (t Target) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Loader reads YAML scan configurations and validates them against the
// schema.
type Loader struct {
	validate *validator.Validate
}

// New creates a new Loader with the schema validators registered.
func New() *Loader {
	v := validator.New()

	_ = v.RegisterValidation("hostenv_name", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("hostenv_duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})

	return &Loader{validate: v}
}

// Load reads a YAML file and returns a validated Config.
func (l *Loader) Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return l.Parse(data)
}

// Parse decodes and validates an in-memory YAML document.
func (l *Loader) Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// validateConfig runs schema validation (struct tags) plus the cross-field
// rules the tags cannot express.
func (l *Loader) validateConfig(cfg Config) error {
	if err := l.validate.Struct(cfg); err != nil {
		return formatValidationErrors(err)
	}

	seen := make(map[string]struct{}, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	reqs := make(map[string]struct{}, len(cfg.Packages))
	for _, r := range cfg.Packages {
		if _, dup := reqs[r.Name]; dup {
			return fmt.Errorf("duplicate package requirement %q", r.Name)
		}
		reqs[r.Name] = struct{}{}
	}

	return nil
}

// formatValidationErrors converts validator errors into user-friendly messages.
func formatValidationErrors(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var messages []string
	for _, fe := range validationErrors {
		messages = append(messages, formatFieldError(fe))
	}

	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// formatFieldError converts a single field validation error to a human-readable message.
func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "hostenv_name":
		return fmt.Sprintf("%s must be alphanumeric with . _ + - only", field)
	case "hostenv_duration":
		return fmt.Sprintf("%s must be a positive duration such as \"30s\"", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
