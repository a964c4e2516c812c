package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Error kinds. Every failure surfaced by the generator wraps exactly one of
// these, so callers can branch with errors.Is instead of matching messages.
var (
	ErrValidation    = errors.New("validation error")
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrProcessing    = errors.New("processing error")
	ErrOutputMissing = errors.New("output missing")
)

// ErrMissingFiles is the validation failure for an incomplete upload form.
var ErrMissingFiles = errors.New("missing required files (excel_file or folder_zip)")

// ErrMissingJoinKey is returned by Merge when a table lacks the join column.
var ErrMissingJoinKey = errors.New("missing join key")

// Stage names the pipeline step an Error came from.
type Stage string

const (
	StageUpload        Stage = "upload"
	StageExtract       Stage = "extract_archive"
	StageReference     Stage = "stage_reference"
	StageReadPrimary   Stage = "read_primary"
	StageReadConfig    Stage = "read_config"
	StageReadReference Stage = "read_reference"
	StageMerge         Stage = "merge"
	StageWrite         Stage = "write_output"
	StageVerify        Stage = "verify_output"
)

// Error is a failure tagged with its kind, the stage that produced it and,
// when relevant, the file involved. The cause stays reachable via errors.Is/As.
type Error struct {
	Kind  error
	Stage Stage
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// clientText is Error with the directory of Path removed from the message,
// so a staged file is reported by its name alone.
func (e *Error) clientText() string {
	if e.Path == "" {
		return e.Error()
	}
	dir := filepath.Dir(e.Path)
	msg := fmt.Sprintf("%s: %s: %v", e.Stage, filepath.Base(e.Path), e.Err)
	if dir == "." || dir == string(filepath.Separator) {
		return msg
	}
	return strings.ReplaceAll(msg, dir+string(filepath.Separator), "")
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newError(kind error, stage Stage, path string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Path: path, Err: err}
}

// NewValidationError wraps err as an ErrValidation of the upload stage.
func NewValidationError(err error) error {
	return newError(ErrValidation, StageUpload, "", err)
}

// KindOf returns the kind wrapped by err, or nil if err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrIO, ErrParse, ErrProcessing, ErrOutputMissing} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsPipelineError reports whether err came from one of the generation stages
// (reading, merging, writing) as opposed to staging the upload.
func IsPipelineError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Stage {
	case StageReadPrimary, StageReadConfig, StageReadReference, StageMerge, StageWrite:
		return true
	}
	return false
}
