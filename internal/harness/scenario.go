package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dhd/internal/gate"
	"github.com/roach88/dhd/internal/store"
)

// Scenario defines one dialing conformance scenario: how the board is laid
// out, what is dialed, an optional interruption, and what must come out.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional CUE catalog directory. Relative paths are
	// resolved against the scenario file. Empty means the embedded catalog.
	Catalog string `yaml:"catalog,omitempty"`

	// Anchors selects when chevron positions become known:
	// "measured" (all up front, the default) or "on_activation" (each
	// chevron is measured only once an activation for it arrives).
	Anchors string `yaml:"anchors,omitempty"`

	// Chevrons overrides the number of physical chevrons (default 7).
	Chevrons int `yaml:"chevrons,omitempty"`

	// Pattern, MinLength and MaxLength configure the address validator used
	// for text input.
	Pattern   string `yaml:"pattern,omitempty"`
	MinLength int    `yaml:"min_length,omitempty"`
	MaxLength int    `yaml:"max_length,omitempty"`

	// Settle is the Shutdown hold before the gate idles. Defaults to zero.
	Settle time.Duration `yaml:"settle,omitempty"`

	// Dial is the input that starts the scenario.
	Dial DialInput `yaml:"dial"`

	// Interrupt optionally stops the sequence part way.
	Interrupt *Interrupt `yaml:"interrupt,omitempty"`

	// Expect lists the outcome checks.
	Expect Expectation `yaml:"expect"`

	// Tokens are fixed attempt tokens, handed out in order.
	// Defaults to a single "dial-1".
	Tokens []string `yaml:"tokens,omitempty"`
}

// DialInput is either typed text, which goes through the dialing computer
// (validation, alert, origin appended), or a raw address handed straight to
// the engine.
type DialInput struct {
	Text    string `yaml:"text,omitempty"`
	Address string `yaml:"address,omitempty"`
}

// IsText reports whether the input goes through the dialing computer.
func (d DialInput) IsText() bool {
	return d.Text != ""
}

// Interrupt stops the sequence once After activations have been broadcast,
// before the last of them is answered.
type Interrupt struct {
	// Action is "reset" or "redial".
	Action string `yaml:"action"`

	// After is the number of activations to let through.
	After int `yaml:"after"`

	// Redial is the new input for a redial interrupt.
	Redial *DialInput `yaml:"redial,omitempty"`
}

// Expectation holds the checks evaluated after the scenario settles.
// Unset fields are not checked.
type Expectation struct {
	// Chevrons is the chevron index of every activation, in broadcast order.
	Chevrons []int `yaml:"chevrons,omitempty"`

	// Activations is the number of activations broadcast.
	Activations *int `yaml:"activations,omitempty"`

	// FailSteps lists the steps whose activation carried fail=true.
	FailSteps []int `yaml:"fail_steps,omitempty"`

	// Status is the final gate status.
	Status string `yaml:"status,omitempty"`

	// Statuses is the full status history, initial Idle included.
	Statuses []string `yaml:"statuses,omitempty"`

	// Results is the number of results published.
	Results *int `yaml:"results,omitempty"`

	// Reached is the DestinationReached flag of the last result.
	Reached *bool `yaml:"reached,omitempty"`

	// Destination is the destination ID of the last result.
	Destination string `yaml:"destination,omitempty"`

	// Alerts is the number of alerts raised.
	Alerts *int `yaml:"alerts,omitempty"`

	// Error is the gate error code returned by the dial input.
	Error string `yaml:"error,omitempty"`

	// Outcomes maps attempt tokens to their journaled outcome
	// (running, reached, failed, aborted).
	Outcomes map[string]string `yaml:"outcomes,omitempty"`
}

// Anchor modes.
const (
	AnchorsMeasured     = "measured"
	AnchorsOnActivation = "on_activation"
)

// Interrupt actions.
const (
	InterruptReset  = "reset"
	InterruptRedial = "redial"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to basePath. An empty basePath
// resolves against the scenario file's own directory.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if basePath == "" {
		basePath = filepath.Dir(path)
	}
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "interupt:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if err := validateDialInput("dial", s.Dial); err != nil {
		return err
	}

	switch s.Anchors {
	case "", AnchorsMeasured, AnchorsOnActivation:
	default:
		return fmt.Errorf("anchors must be %q or %q, got %q", AnchorsMeasured, AnchorsOnActivation, s.Anchors)
	}

	if s.Chevrons < 0 {
		return fmt.Errorf("chevrons must not be negative")
	}
	if s.Settle < 0 {
		return fmt.Errorf("settle must not be negative")
	}

	if s.Interrupt != nil {
		if err := validateInterrupt(s); err != nil {
			return fmt.Errorf("interrupt: %w", err)
		}
	}

	if err := validateExpectation(s.Expect); err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	return nil
}

func validateDialInput(field string, d DialInput) error {
	switch {
	case d.Text == "" && d.Address == "":
		return fmt.Errorf("%s needs text or address", field)
	case d.Text != "" && d.Address != "":
		return fmt.Errorf("%s takes text or address, not both", field)
	}
	return nil
}

func validateInterrupt(s *Scenario) error {
	in := s.Interrupt
	if in.After < 1 {
		return fmt.Errorf("after must be at least 1")
	}
	// With measured anchors the engine may run past activation N before
	// the harness sees it.
	if s.Anchors != AnchorsOnActivation {
		return fmt.Errorf("requires anchors: %s", AnchorsOnActivation)
	}

	switch in.Action {
	case InterruptReset:
		if in.Redial != nil {
			return fmt.Errorf("reset takes no redial input")
		}
	case InterruptRedial:
		if in.Redial == nil {
			return fmt.Errorf("redial requires a redial input")
		}
		if err := validateDialInput("redial", *in.Redial); err != nil {
			return err
		}
	default:
		return fmt.Errorf("action must be %q or %q, got %q", InterruptReset, InterruptRedial, in.Action)
	}
	return nil
}

func validateExpectation(e Expectation) error {
	if e.Status != "" {
		if _, err := gate.ParseStatus(e.Status); err != nil {
			return fmt.Errorf("status: %w", err)
		}
	}
	for i, name := range e.Statuses {
		if _, err := gate.ParseStatus(name); err != nil {
			return fmt.Errorf("statuses[%d]: %w", i, err)
		}
	}
	for i, n := range e.Chevrons {
		if n < 1 {
			return fmt.Errorf("chevrons[%d]: index must be at least 1, got %d", i, n)
		}
	}
	for id, outcome := range e.Outcomes {
		switch outcome {
		case store.OutcomeRunning, store.OutcomeReached, store.OutcomeFailed, store.OutcomeAborted:
		default:
			return fmt.Errorf("outcomes[%s]: unknown outcome %q", id, outcome)
		}
	}
	return nil
}
