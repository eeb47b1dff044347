package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var supportedFormats = []string{"text", "json", "yaml"}

// resolveFormat returns the --format value, or the configured default.
func resolveFormat(flagValue, configured string) (string, error) {
	format := configured
	if flagValue != "" {
		format = strings.ToLower(flagValue)
	}
	for _, f := range supportedFormats {
		if f == format {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(supportedFormats, ", "))
}

// writeStructured encodes v as json or yaml.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	return fmt.Errorf("unsupported structured format %q", format)
}

// disableColorUnlessTerminal turns coloring off when w is a file or pipe.
func disableColorUnlessTerminal(w io.Writer) {
	if f, ok := w.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		color.NoColor = true
	}
}
