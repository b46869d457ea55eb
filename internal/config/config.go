package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/ykvc/internal/backup"
	ykerrors "github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/metrics"
	"github.com/systmms/ykvc/internal/platform"
	"github.com/systmms/ykvc/internal/prompt"
	pkgexec "github.com/systmms/ykvc/pkg/exec"
)

//go:embed schema.json
var schema []byte

// Config holds the runtime configuration and the collaborators commands
// run against. Zero collaborators are filled with production defaults by
// Init.
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition

	// Out receives command results (as opposed to log lines).
	Out      io.Writer
	Executor pkgexec.CommandExecutor
	Prompter prompt.Prompter
	LookPath pkgexec.LookPath
	Resolver platform.Resolver
	Keyring  backup.Store
	Audit    *logging.Audit
	Metrics  *metrics.Metrics
}

// Definition is the ykvc.yaml structure.
type Definition struct {
	Version int           `yaml:"version"`
	Keyfile KeyfileConfig `yaml:"keyfile"`
	Erase   EraseConfig   `yaml:"erase"`
	Tools   ToolsConfig   `yaml:"tools"`
	Backup  BackupConfig  `yaml:"backup"`
}

type KeyfileConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

type EraseConfig struct {
	Passes int `yaml:"passes,omitempty"`
}

// ToolsConfig overrides tool binaries per platform.
type ToolsConfig struct {
	MacOS  ToolOverrides `yaml:"macos,omitempty"`
	Debian ToolOverrides `yaml:"debian,omitempty"`
}

type ToolOverrides struct {
	Ykman         string `yaml:"ykman,omitempty"`
	Ykpersonalize string `yaml:"ykpersonalize,omitempty"`
	Ykchalresp    string `yaml:"ykchalresp,omitempty"`
	Erase         string `yaml:"erase,omitempty"`
}

type BackupConfig struct {
	KeyringService string `yaml:"keyring_service,omitempty"`
}

// Load reads the config file. A missing file is not an error: the zero
// Definition keeps every default.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Logger != nil {
				c.Logger.Debug("No config file at %s, using defaults", c.Path)
			}
			c.Definition = &Definition{}
			return nil
		}
		return ykerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	return nil
}

// Parse validates data against the embedded schema and decodes it.
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Definition{}, nil
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ykerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		return &Definition{}, nil
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, ykerrors.ConfigError{Message: err.Error()}
	}
	return &def, nil
}

func validate(raw interface{}) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return ykerrors.ConfigError{
			Message:    fmt.Sprintf("configuration cannot be represented as JSON: %v", err),
			Suggestion: "Use string keys only",
		}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	messages := make([]string, 0, len(errs))
	for _, desc := range errs {
		messages = append(messages, desc.String())
	}
	first := errs[0]
	return ykerrors.ConfigError{
		Field:      first.Field(),
		Value:      first.Value(),
		Message:    strings.Join(messages, "; "),
		Suggestion: "See the configuration section of the README for the accepted keys",
	}
}

// Profile resolves the host platform and applies the configured overrides.
func (c *Config) Profile() (platform.Profile, error) {
	p, err := c.Resolver.Resolve()
	if err != nil {
		return platform.Profile{}, err
	}
	return c.definition().ProfileFor(p), nil
}

// ProfileFor returns the default profile for p with overrides applied.
func (d *Definition) ProfileFor(p platform.Platform) platform.Profile {
	var tools ToolOverrides
	switch p {
	case platform.MacOS:
		tools = d.Tools.MacOS
	case platform.Debian:
		tools = d.Tools.Debian
	}

	return platform.DefaultProfile(p).Apply(platform.Overrides{
		Ykman:         tools.Ykman,
		Ykpersonalize: tools.Ykpersonalize,
		Ykchalresp:    tools.Ykchalresp,
		Erase:         tools.Erase,
		ErasePasses:   d.Erase.Passes,
	})
}

func (c *Config) definition() *Definition {
	if c.Definition == nil {
		return &Definition{}
	}
	return c.Definition
}

// KeyfileDir is the directory for unnamed keyfiles; empty means the
// working directory.
func (c *Config) KeyfileDir() string {
	return c.definition().Keyfile.Dir
}

// KeyringService is the keyring service name for secret backups.
func (c *Config) KeyringService() string {
	if s := c.definition().Backup.KeyringService; s != "" {
		return s
	}
	return backup.DefaultService
}

// Init fills unset collaborators with their production implementations.
// When Metrics is set the executor is instrumented.
func (c *Config) Init() {
	if c.Logger == nil {
		c.Logger = logging.New(false, false)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Executor == nil {
		c.Executor = pkgexec.DefaultExecutor()
	}
	c.Executor = metrics.Instrument(c.Executor, c.Metrics)
	if c.Prompter == nil {
		c.Prompter = prompt.NewTerminal(c.NonInteractive)
	}
	if c.LookPath == nil {
		c.LookPath = pkgexec.SystemLookPath
	}
	if c.Keyring == nil {
		c.Keyring = backup.NewKeyring(c.KeyringService())
	}
	if c.Audit == nil {
		c.Audit = logging.NopAudit()
	}
}
