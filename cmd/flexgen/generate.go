package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/flexgen/internal/core"
)

type generateOptions struct {
	input     string
	configDir string
	dff       string
	output    string
	xml       bool
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the flexfield input workbook",
		Long: `Read the input workbook, every .txt file in the config directory and the DFF
reference, merge them and write the result. Without --dff an empty reference
is used and no flexfield columns are joined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "primary workbook (.xlsx)")
	f.StringVarP(&opts.configDir, "config-dir", "c", "", "directory of .txt config snippets")
	f.StringVarP(&opts.dff, "dff", "d", "", "DFF reference workbook (optional)")
	f.StringVarP(&opts.output, "output", "o", core.OutputName, "output workbook path")
	f.BoolVar(&opts.xml, "xml", false, "set XML_PROCESSED to Yes on every row")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("config-dir")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	job := core.Job{
		RunID:         uuid.NewString(),
		InputPath:     opts.input,
		ConfigDir:     opts.configDir,
		ReferencePath: opts.dff,
		OutputPath:    opts.output,
		XML:           opts.xml,
	}

	if job.ReferencePath == "" {
		tmp, err := os.MkdirTemp("", "flexgen-")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmp)

		job.ReferencePath = filepath.Join(tmp, core.EmptyReferenceName)
		if err := core.WriteEmptyReference(job.ReferencePath); err != nil {
			return fmt.Errorf("write empty reference: %w", err)
		}
	}

	summary, err := core.Generate(cmd.Context(), job)
	if err != nil {
		return errors.New(core.Describe(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows, %d columns, %d config values)\n",
		job.OutputPath, summary.Rows, summary.Columns, summary.Configs)
	return nil
}
