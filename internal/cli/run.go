package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/gsacache"
	"github.com/hupe1980/gsacache/codec"
	"github.com/hupe1980/gsacache/internal/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Dump        string
	Codec       string
	Compression string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a sync session scenario",
		Long: `Replay a scenario file against a fresh cache and print the final state.

Example:
  gsacache run ./session.yaml
  gsacache run ./session.yaml --dump state.dump --compression lz4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Dump, "dump", "", "write a diagnostic dump of the final state to this file")
	cmd.Flags().StringVar(&opts.Codec, "codec", codec.Default.Name(), "dump codec (json|go-json)")
	cmd.Flags().StringVar(&opts.Compression, "compression", codec.CompressionZstd.String(), "dump compression (none|zstd|lz4)")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	cd, ok := codec.ByName(opts.Codec)
	if !ok {
		return fmt.Errorf("unknown codec %q", opts.Codec)
	}
	comp, err := codec.ParseCompression(opts.Compression)
	if err != nil {
		return err
	}

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	rep, c, runErr := scenario.Run(cmd.Context(), s,
		gsacache.WithLogger(opts.logger(cmd.ErrOrStderr())),
		gsacache.WithCodec(cd),
		gsacache.WithDumpCompression(comp),
	)
	if runErr != nil && !errors.Is(runErr, scenario.ErrExpectation) {
		return runErr
	}

	if err := writeOutput(cmd, opts.Format, rep, rep.WriteText); err != nil {
		return err
	}

	if opts.Dump != "" {
		if err := writeDump(c, opts.Dump); err != nil {
			return err
		}
	}
	return runErr
}

func writeDump(c *gsacache.Cache, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return c.Dump(f)
}
