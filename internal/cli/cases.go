package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/flagprops/internal/properties"
	"github.com/TimurManjosov/flagprops/internal/targeting"
)

// Expectation is the outcome a case expects: "true", "false" or one of the
// failure outcomes ("missing_property", "inconclusive", "validation_error").
type Expectation string

var validExpectations = map[Expectation]struct{}{
	targeting.OutcomeTrue:            {},
	targeting.OutcomeFalse:           {},
	targeting.OutcomeMissingProperty: {},
	targeting.OutcomeInconclusive:    {},
	targeting.OutcomeValidationError: {},
}

// UnmarshalYAML accepts plain booleans as well as outcome names.
func (e *Expectation) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expect must be a scalar", node.Line)
	}
	exp := Expectation(strings.ToLower(node.Value))
	if _, ok := validExpectations[exp]; !ok {
		return fmt.Errorf("line %d: unknown expectation %q", node.Line, node.Value)
	}
	*e = exp
	return nil
}

// Case is one entry of a case file. Exactly one of Filter and Filters is set.
type Case struct {
	Name       string                      `yaml:"name"`
	Filter     *properties.PropertyFilter  `yaml:"filter,omitempty"`
	Filters    []properties.PropertyFilter `yaml:"filters,omitempty"`
	Properties properties.Properties       `yaml:"properties"`
	Partial    bool                        `yaml:"partial"`
	Expect     Expectation                 `yaml:"expect"`
}

// FilterList returns the case's filters as a list.
func (c Case) FilterList() []properties.PropertyFilter {
	if c.Filter != nil {
		return []properties.PropertyFilter{*c.Filter}
	}
	return c.Filters
}

// CaseFile is the document read by "flagprops run".
type CaseFile struct {
	Cases []Case `yaml:"cases"`
}

// CaseResult pairs a case with what the evaluator said.
type CaseResult struct {
	Name   string      `json:"name" yaml:"name"`
	Expect Expectation `json:"expect" yaml:"expect"`
	Result Result      `json:"result" yaml:"result"`
	Passed bool        `json:"passed" yaml:"passed"`
}

// LoadCases reads and validates a YAML (or JSON) case file.
func LoadCases(path string) (*CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseCases(data)
}

// ParseCases parses and validates case file contents.
func ParseCases(data []byte) (*CaseFile, error) {
	var file CaseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, errors.New("no cases found in file")
	}

	var problems []string
	for i, c := range file.Cases {
		label := fmt.Sprintf("case %d", i)
		if c.Name != "" {
			label = fmt.Sprintf("case %d (%s)", i, c.Name)
		}
		switch {
		case c.Name == "":
			problems = append(problems, label+": name is required")
		case c.Filter != nil && len(c.Filters) > 0:
			problems = append(problems, label+": set either filter or filters, not both")
		case c.Filter == nil && c.Filters == nil:
			problems = append(problems, label+": filter or filters is required")
		case c.Expect == "":
			problems = append(problems, label+": expect is required")
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid case file:\n  %s", strings.Join(problems, "\n  "))
	}
	return &file, nil
}

// RunCases evaluates cases with at most concurrency in flight. Results keep
// the order of cases. The first evaluator failure cancels the run.
func RunCases(ctx context.Context, ev Evaluator, cases []Case, concurrency int) ([]CaseResult, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	results := make([]CaseResult, len(cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range cases {
		g.Go(func() error {
			res, err := ev.Evaluate(ctx, c.FilterList(), c.Properties, c.Partial)
			if err != nil {
				return fmt.Errorf("case %q: %w", c.Name, err)
			}
			results[i] = CaseResult{
				Name:   c.Name,
				Expect: c.Expect,
				Result: res,
				Passed: string(c.Expect) == res.Outcome,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CountFailed returns how many results did not meet their expectation.
func CountFailed(results []CaseResult) int {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	return failed
}

// ReadInput returns arg itself, or the contents of the named file when arg
// starts with "@".
func ReadInput(arg string) ([]byte, string, error) {
	name, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return []byte(arg), "", nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return data, name, nil
}

// DecodeFilters accepts one filter object or a list of filters, as JSON, or
// as YAML when source names a .yaml/.yml file.
func DecodeFilters(data []byte, source string) ([]properties.PropertyFilter, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") || (isYAML(source) && strings.HasPrefix(trimmed, "-")) {
		var filters []properties.PropertyFilter
		if err := decodeDocument(data, source, &filters); err != nil {
			return nil, fmt.Errorf("failed to parse filters: %w", err)
		}
		if len(filters) == 0 {
			return nil, errors.New("no filters given")
		}
		return filters, nil
	}

	var filter properties.PropertyFilter
	if err := decodeDocument(data, source, &filter); err != nil {
		return nil, fmt.Errorf("failed to parse filter: %w", err)
	}
	return []properties.PropertyFilter{filter}, nil
}

// DecodePropertiesInput parses a property object the same way as filters.
func DecodePropertiesInput(data []byte, source string) (properties.Properties, error) {
	if isYAML(source) {
		props := properties.Properties{}
		if err := yaml.Unmarshal(data, &props); err != nil {
			return nil, fmt.Errorf("failed to parse properties: %w", err)
		}
		return props, nil
	}
	props, err := properties.DecodeProperties(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	return props, nil
}

func isYAML(source string) bool {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decodeDocument(data []byte, source string, out any) error {
	if isYAML(source) {
		return yaml.Unmarshal(data, out)
	}
	return json.Unmarshal(data, out)
}
