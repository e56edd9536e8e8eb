package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	stepColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

// configureColor disables colours when asked to or when stderr is not a terminal.
func configureColor(disabled bool) {
	color.NoColor = disabled || !term.IsTerminal(int(os.Stderr.Fd()))
}

func colorize(c *color.Color, text string) string {
	return c.Sprint(text)
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(successColor, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(errorColor, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(warningColor, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(boldColor, label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(stepColor, "→ "+fmt.Sprintf(format, args...)))
}

// writeFormatted writes v to w as indented JSON or, with format "yaml", as YAML.
func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		out, err := renderYAML(v)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// renderYAML renders v as block YAML, keeping the field order of its JSON form.
func renderYAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", fmt.Errorf("converting to yaml: %w", err)
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", fmt.Errorf("encoding yaml: %w", err)
	}
	return string(out), nil
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
