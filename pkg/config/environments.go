package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
	"gopkg.in/yaml.v3"
)

// DefaultEnvironmentName names the environment of a single-environment file.
const DefaultEnvironmentName = "default"

var ErrUnknownEnvironment = errors.New("unknown environment")

type SourceEndpoint struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
}

type TargetEndpoint struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	BaseID  string `yaml:"base_id" json:"base_id"`
	// FieldsKey wraps the payload on create/update and is the namespace
	// stripped from target paths before they are written.
	FieldsKey string `yaml:"fields_key" json:"fields_key,omitempty"`
}

// Environment is the read-only configuration one request works against.
type Environment struct {
	Name     string               `yaml:"-" json:"name"`
	Source   SourceEndpoint       `yaml:"source" json:"source"`
	Target   TargetEndpoint       `yaml:"target" json:"target"`
	Entities entitymap.EntityMaps `yaml:"entities" json:"entities"`
}

func (e *Environment) PayloadOptions() entitymap.PayloadOptions {
	return entitymap.PayloadOptions{StripPrefix: e.Target.FieldsKey}
}

func (e *Environment) applyDefaults() {
	e.Source.BaseURL = strings.TrimSpace(e.Source.BaseURL)
	e.Target.BaseURL = strings.TrimSpace(e.Target.BaseURL)
	e.Target.BaseID = strings.TrimSpace(e.Target.BaseID)
	if strings.TrimSpace(e.Target.FieldsKey) == "" {
		e.Target.FieldsKey = entitymap.DefaultFieldsKey
	}
	if e.Entities == nil {
		e.Entities = entitymap.EntityMaps{}
	}
}

// ValidateEndpoints checks the source and target settings only.
func (e *Environment) ValidateEndpoints() error {
	if err := validateBaseURL("source.base_url", e.Source.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("target.base_url", e.Target.BaseURL); err != nil {
		return err
	}
	if e.Target.BaseID == "" {
		return errors.New("target.base_id is required")
	}
	return nil
}

func (e *Environment) validate() error {
	if err := e.ValidateEndpoints(); err != nil {
		return err
	}
	if err := entitymap.Validate(e.Entities, e.PayloadOptions()); err != nil {
		return fmt.Errorf("entities: %w", err)
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s is invalid: %q", name, raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return fmt.Errorf("%s scheme must be http or https: %q", name, raw)
	}
}

type environmentsFile struct {
	Default      string                  `yaml:"default"`
	Environments map[string]*Environment `yaml:"environments"`
	Environment  `yaml:",inline"`
}

// Environments is a loaded environments file.
type Environments struct {
	Path    string
	Default string
	byName  map[string]*Environment
	names   []string
}

// LoadEnvironments reads an environments file. The file either describes a
// single environment at the top level (source, target, entities) or several
// under an environments mapping, optionally naming the default one.
func LoadEnvironments(path string) (*Environments, error) {
	// #nosec G304 -- path comes from trusted config/env.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	envs, err := ParseEnvironments(b)
	if err != nil {
		return nil, err
	}
	envs.Path = path
	return envs, nil
}

// LoadEnvironmentsUnvalidated reads an environments file without rejecting
// invalid environments, for linting.
func LoadEnvironmentsUnvalidated(path string) (*Environments, error) {
	// #nosec G304 -- path comes from trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	envs, err := parseEnvironments(b, false)
	if err != nil {
		return nil, err
	}
	envs.Path = path
	return envs, nil
}

func ParseEnvironments(b []byte) (*Environments, error) {
	return parseEnvironments(b, true)
}

func parseEnvironments(b []byte, validate bool) (*Environments, error) {
	var raw environmentsFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := &Environments{byName: map[string]*Environment{}}
	if len(raw.Environments) == 0 {
		env := raw.Environment
		env.Name = DefaultEnvironmentName
		out.byName[env.Name] = &env
	} else {
		for name, env := range raw.Environments {
			name = strings.TrimSpace(name)
			if name == "" || env == nil {
				continue
			}
			env.Name = name
			out.byName[name] = env
		}
	}
	for name, env := range out.byName {
		env.applyDefaults()
		if validate {
			if err := env.validate(); err != nil {
				return nil, fmt.Errorf("environment %q: %w", name, err)
			}
		}
		out.names = append(out.names, name)
	}
	sort.Strings(out.names)

	out.Default = strings.TrimSpace(raw.Default)
	switch {
	case out.Default != "":
		if _, ok := out.byName[out.Default]; !ok {
			return nil, fmt.Errorf("default environment %q is not defined", out.Default)
		}
	case len(out.names) == 1:
		out.Default = out.names[0]
	case out.byName[DefaultEnvironmentName] != nil:
		out.Default = DefaultEnvironmentName
	}
	return out, nil
}

// Get returns the named environment; an empty name selects the default.
func (e *Environments) Get(name string) (*Environment, error) {
	if e == nil {
		return nil, ErrUnknownEnvironment
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = e.Default
	}
	env, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
	}
	return env, nil
}

func (e *Environments) Names() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.names...)
}
