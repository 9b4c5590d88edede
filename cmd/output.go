package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func addFormatFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("format", "o", formatText, "output format: text, json or yaml")
}

func outputFormat(cmd *cobra.Command) (string, error) {
	f := formatText
	if fl := cmd.Flag("format"); fl != nil {
		f = fl.Value.String()
	}
	switch f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", f)
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}
}

// emit writes v in the requested structured format, or calls text.
func emit(cmd *cobra.Command, v any, text func()) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if format == formatText {
		text()
		return nil
	}
	return writeStructured(cmd.OutOrStdout(), format, v)
}
