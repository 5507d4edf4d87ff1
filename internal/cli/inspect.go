package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/gsacache"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dump-file>",
		Short: "Summarize a diagnostic dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open dump: %w", err)
			}
			defer f.Close()

			doc, err := gsacache.ReadDump(f)
			if err != nil {
				return err
			}
			return writeOutput(cmd, rootOpts.Format, doc, func(w io.Writer) error {
				return writeDumpText(w, doc)
			})
		},
	}
}

func writeDumpText(w io.Writer, doc *gsacache.DumpDocument) error {
	var b strings.Builder
	fmt.Fprintf(&b, "session: %s\n", doc.SessionID)
	fmt.Fprintf(&b, "records: %d\n", len(doc.Records))
	for _, r := range doc.Records {
		state := "current"
		switch {
		case r.Latest && r.Previous:
			state = "kept"
		case r.Previous:
			state = "expired"
		case !r.Latest:
			state = "stale"
		}
		fmt.Fprintf(&b, "  #%d %s/%d %s %s\n", r.Position, r.SchemaType, r.Index, orDash(r.ApplicationID), state)
	}
	fmt.Fprintf(&b, "reservations: %d\n", len(doc.Reservations))
	for _, r := range doc.Reservations {
		fmt.Fprintf(&b, "  %s/%d %s\n", r.SchemaType, r.Index, orDash(r.ApplicationID))
	}
	fmt.Fprintf(&b, "objects: %d\n", len(doc.Objects))
	for _, o := range doc.Objects {
		fmt.Fprintf(&b, "  #%d %s %s %s links=%v\n", o.Position, o.SchemaType, orDash(o.ApplicationID), o.Layer, o.Links)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
