// Package scenario runs YAML scripts of SDK calls against an initialized
// app and streams one result document per step.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario represents a scenario file.
type Scenario struct {
	Name string `yaml:"name"`
	// App overrides the host's app options for this run.
	App *AppSpec `yaml:"app"`
	// ContinueOnError keeps running after a failed step.
	ContinueOnError bool   `yaml:"continue_on_error"`
	Steps           []Step `yaml:"steps"`

	path string
}

// AppSpec overrides firebase options. Empty fields keep the host value.
type AppSpec struct {
	Name          string `yaml:"name"`
	APIKey        string `yaml:"api_key"`
	ProjectID     string `yaml:"project_id"`
	AuthDomain    string `yaml:"auth_domain"`
	StorageBucket string `yaml:"storage_bucket"`
	AppID         string `yaml:"app_id"`
}

// Step is one op invocation.
type Step struct {
	Name string    `yaml:"name"`
	Op   string    `yaml:"op"`
	Args yaml.Node `yaml:"args"`
	// ExpectError makes the step pass only if the op fails with this
	// error code or kind, e.g. auth/wrong-password or not-found.
	ExpectError string `yaml:"expect_error"`
}

// ParseFile reads, parses and validates a scenario file.
func ParseFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScenarioNotFoundError{
			Path: path,
			Err:  err,
		}
	}
	return Parse(path, data)
}

// Parse parses and validates scenario YAML. path is used in errors only.
func Parse(path string, data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &ScenarioParseError{
			Path: path,
			Err:  err,
		}
	}

	s.path = path

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks scenario fields.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return &ScenarioValidationError{
			Path:    s.path,
			Field:   "name",
			Message: "name is required",
		}
	}

	if len(s.Steps) == 0 {
		return &ScenarioValidationError{
			Path:    s.path,
			Field:   "steps",
			Message: "at least one step is required",
		}
	}

	seen := make(map[string]bool, len(s.Steps))
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Op == "" {
			return &ScenarioValidationError{
				Path:    s.path,
				Field:   fmt.Sprintf("steps[%d].op", i),
				Message: "op is required",
			}
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("%d-%s", i+1, step.Op)
		}
		if seen[step.Name] {
			return &ScenarioValidationError{
				Path:    s.path,
				Field:   fmt.Sprintf("steps[%d].name", i),
				Message: fmt.Sprintf("duplicate step name: %s", step.Name),
			}
		}
		seen[step.Name] = true

		if !emptyNode(&step.Args) && step.Args.Kind != yaml.MappingNode {
			return &ScenarioValidationError{
				Path:    s.path,
				Field:   fmt.Sprintf("steps[%d].args", i),
				Message: "args must be a mapping",
			}
		}
	}

	return nil
}

// Path returns the scenario file path.
func (s *Scenario) Path() string {
	return s.path
}

func emptyNode(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}
