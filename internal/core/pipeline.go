package core

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/JonMunkholm/flexgen/internal/configfiles"
	"github.com/JonMunkholm/flexgen/internal/logging"
	"github.com/JonMunkholm/flexgen/internal/table"
)

// Job names the files one generation reads and writes.
type Job struct {
	RunID         string
	InputPath     string
	ConfigDir     string
	ReferencePath string
	OutputPath    string
	XML           bool
}

// Summary describes a written result table.
type Summary struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
	Configs int `json:"configs"`
}

// Generate reads the primary table, the config directory and the reference
// table, merges them and writes the result, in that order. The first failing
// stage aborts the run; its error is logged and returned as *Error.
func Generate(ctx context.Context, job Job) (*Summary, error) {
	logger := logging.WithFields(ctx, "run_id", job.RunID)

	primary, err := table.ReadFile(job.InputPath)
	if err != nil {
		return nil, stageFailed(logger, readKind(err), StageReadPrimary, job.InputPath, err)
	}
	logger.Info("input file read", "path", job.InputPath, "rows", primary.Len(), "columns", len(primary.Columns))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configs, err := configfiles.Read(job.ConfigDir)
	if err != nil {
		return nil, stageFailed(logger, ErrIO, StageReadConfig, job.ConfigDir, err)
	}
	logger.Info("configuration files read", "dir", job.ConfigDir, "count", len(configs))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reference, err := table.ReadFile(job.ReferencePath)
	if err != nil {
		return nil, stageFailed(logger, readKind(err), StageReadReference, job.ReferencePath, err)
	}
	logger.Info("reference file read", "path", job.ReferencePath, "rows", reference.Len())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := Merge(primary, configs, reference, job.XML)
	if err != nil {
		return nil, stageFailed(logger, ErrProcessing, StageMerge, "", err)
	}
	logger.Info("data processed", "rows", result.Len(), "columns", len(result.Columns))

	if err := table.WriteFile(result, job.OutputPath); err != nil {
		kind := ErrIO
		if errors.Is(err, table.ErrCellTooLong) {
			kind = ErrProcessing
		}
		return nil, stageFailed(logger, kind, StageWrite, job.OutputPath, err)
	}
	logger.Info("output saved", "path", job.OutputPath)

	return &Summary{
		Rows:    result.Len(),
		Columns: len(result.Columns),
		Configs: len(configs),
	}, nil
}

// WriteEmptyReference writes a reference workbook with the reference header
// and no rows.
func WriteEmptyReference(path string) error {
	return table.WriteFile(table.New(ReferenceColumns...), path)
}

func stageFailed(logger *slog.Logger, kind error, stage Stage, path string, err error) error {
	logger.Error("generation stage failed",
		"stage", stage,
		"path", path,
		"kind", kind.Error(),
		"error", err,
	)
	return newError(kind, stage, path, err)
}

// readKind separates filesystem failures from unparseable workbooks.
func readKind(err error) error {
	var pathErr *fs.PathError
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &pathErr) {
		return ErrIO
	}
	return ErrParse
}
