package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/gsacache/codec"
)

// writeOutput renders v with text in text format, or as JSON.
func writeOutput(cmd *cobra.Command, format string, v any, text func(io.Writer) error) error {
	w := cmd.OutOrStdout()
	if format != "json" {
		return text(w)
	}
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
