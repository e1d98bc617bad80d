package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/flagprops/internal/properties"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintResult outputs a single evaluation in the specified format
func PrintResult(w io.Writer, res Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, res)
	case FormatYAML:
		return printYAML(w, res)
	case FormatTable:
		return printResultTable(w, res)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintCaseResults outputs the results of a case file run
func PrintCaseResults(w io.Writer, results []CaseResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]CaseResult{"cases": results})
	case FormatYAML:
		return printYAML(w, map[string][]CaseResult{"cases": results})
	case FormatTable:
		return printCaseTable(w, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintOperators outputs the operator wire names
func PrintOperators(w io.Writer, ops []properties.Operator, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]properties.Operator{"operators": ops})
	case FormatYAML:
		return printYAML(w, map[string][]properties.Operator{"operators": ops})
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Operator")
		for _, op := range ops {
			if err := table.Append(string(op)); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printResultTable(w io.Writer, res Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Matched", "Outcome", "Failed Filter", "Error")
	if err := table.Append(
		strconv.FormatBool(res.Matched),
		res.Outcome,
		failedIndex(res.FailedIndex),
		truncate(res.Error, 60),
	); err != nil {
		return err
	}
	return table.Render()
}

func printCaseTable(w io.Writer, results []CaseResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Case", "Expect", "Outcome", "Status", "Error")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		if err := table.Append(
			truncate(r.Name, 40),
			string(r.Expect),
			r.Result.Outcome,
			status,
			truncate(r.Result.Error, 60),
		); err != nil {
			return err
		}
	}

	return table.Render()
}

func failedIndex(idx *int) string {
	if idx == nil {
		return "-"
	}
	return strconv.Itoa(*idx)
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit-3] + "..."
	}
	return s
}
