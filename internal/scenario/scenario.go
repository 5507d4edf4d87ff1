// Package scenario drives a cache through a scripted sync session described
// in YAML: hydrating native records, receiving domain objects, resolving
// indices and starting new reconciliation passes.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/gsacache/model"
	"github.com/hupe1980/gsacache/testutil"
)

// Step operations.
const (
	OpHydrate      = "hydrate"
	OpResolve      = "resolve"
	OpReceive      = "receive"
	OpMarkPrevious = "mark_previous"
)

// Scenario is a scripted sync session.
type Scenario struct {
	// Name identifies the scenario in reports.
	Name string `yaml:"name"`

	// Description is free text.
	Description string `yaml:"description,omitempty"`

	// Session fixes the cache session id so reports are reproducible.
	Session string `yaml:"session,omitempty"`

	// Workers bounds the parallel resolvers of resolve steps (default 4).
	Workers int `yaml:"workers,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one operation against the cache.
type Step struct {
	Op string `yaml:"op"`

	// Records are the native records of a hydrate step.
	Records []testutil.Record `yaml:"records,omitempty"`

	// Latest is the latest hint passed with hydrated records.
	Latest *bool `yaml:"latest,omitempty"`

	// Type and ApplicationIDs select what a resolve step resolves.
	Type           model.SchemaType `yaml:"type,omitempty"`
	ApplicationIDs []string         `yaml:"application_ids,omitempty"`

	// Parallel resolves the ids on concurrent workers instead of in order.
	Parallel bool `yaml:"parallel,omitempty"`

	// Record, Layer and Objects describe a receive step: the native record the
	// objects were converted from and the application ids of those objects.
	Record  *testutil.Record `yaml:"record,omitempty"`
	Layer   string           `yaml:"layer,omitempty"`
	Objects []string         `yaml:"objects,omitempty"`

	// Streams limits a mark_previous step.
	Streams []string `yaml:"streams,omitempty"`

	// Expect lists the indices a sequential resolve step must return.
	Expect []int `yaml:"expect,omitempty"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a scenario, rejecting unknown fields.
func Parse(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks required fields of every step.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}

	var errs []error
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i+1, st.Op, err))
		}
	}
	return errors.Join(errs...)
}

func (st Step) validate() error {
	switch st.Op {
	case OpHydrate:
		if len(st.Records) == 0 {
			return errors.New("records are required")
		}
	case OpResolve:
		if st.Type == "" {
			return errors.New("type is required")
		}
		if len(st.ApplicationIDs) == 0 {
			return errors.New("application_ids are required")
		}
		if len(st.Expect) > 0 {
			if st.Parallel {
				return errors.New("expect cannot be used with parallel")
			}
			if len(st.Expect) != len(st.ApplicationIDs) {
				return fmt.Errorf("expect has %d entries for %d application ids", len(st.Expect), len(st.ApplicationIDs))
			}
		}
	case OpReceive:
		if st.Record == nil {
			return errors.New("record is required")
		}
		if _, err := model.ParseLayer(st.Layer); err != nil {
			return err
		}
	case OpMarkPrevious:
	case "":
		return errors.New("op is required")
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}
