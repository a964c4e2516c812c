package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
		wantStatus  int
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "missing files is a validation error",
			err:         newError(ErrValidation, StageUpload, "", ErrMissingFiles),
			wantCode:    "VAL001",
			wantMessage: "Missing required files (excel_file or folder_zip)",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "other validation failures get their own code",
			err:         NewValidationError(errors.New("upload exceeds maximum size of 1024 bytes")),
			wantCode:    "VAL002",
			wantMessage: "The upload was rejected",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "busy limiter maps to 503",
			err:         ErrTooManyGenerations,
			wantCode:    "UPL002",
			wantMessage: "Too many generations in progress",
			wantStatus:  http.StatusServiceUnavailable,
		},
		{
			name:        "parse error",
			err:         newError(ErrParse, StageReadPrimary, "in.xlsx", errors.New("zip: not a valid zip file")),
			wantCode:    "PARSE001",
			wantMessage: "The spreadsheet could not be read",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "missing join key is a processing error",
			err:         newError(ErrProcessing, StageMerge, "", fmt.Errorf("%w %q", ErrMissingJoinKey, JoinKey)),
			wantCode:    "PROC001",
			wantMessage: "The spreadsheets could not be merged",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "output missing",
			err:         newError(ErrOutputMissing, StageVerify, "output.xlsx", errors.New("stat")),
			wantCode:    "OUT001",
			wantMessage: "Output file not generated",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "io error",
			err:         newError(ErrIO, StageExtract, "cfg.zip", ErrUnsafeArchivePath),
			wantCode:    "IO001",
			wantMessage: "A file could not be read or written",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "cancelled request",
			err:         fmt.Errorf("generate: %w", context.Canceled),
			wantCode:    "UPL004",
			wantMessage: "Request was cancelled",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
			wantStatus:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
			if tt.err != nil {
				if status := StatusCode(tt.err); status != tt.wantStatus {
					t.Errorf("StatusCode() = %d, want %d", status, tt.wantStatus)
				}
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "missing files",
			err:  newError(ErrValidation, StageUpload, "", ErrMissingFiles),
			want: "Missing required files (excel_file or folder_zip)",
		},
		{
			name: "other validation failures keep the cause",
			err:  newError(ErrValidation, StageUpload, "", errors.New("request body too large")),
			want: "request body too large",
		},
		{
			name: "pipeline stage is prefixed",
			err:  newError(ErrProcessing, StageMerge, "", fmt.Errorf("%w %q in primary table", ErrMissingJoinKey, JoinKey)),
			want: `Generation failed: merge: missing join key "DESCRIPTIVE_FLEXFIELD_NAME" in primary table`,
		},
		{
			name: "output missing",
			err:  newError(ErrOutputMissing, StageVerify, "output.xlsx", errors.New("stat")),
			want: "Output file not generated",
		},
		{
			name: "workspace directories are not reported",
			err: newError(ErrIO, StageReadPrimary, "/tmp/flexgen/run-1/uploads/excel_file/in.xlsx",
				errors.New("open /tmp/flexgen/run-1/uploads/excel_file/in.xlsx: no such file or directory")),
			want: "Generation failed: read_primary: in.xlsx: open in.xlsx: no such file or directory",
		},
		{
			name: "config folder keeps the entry name",
			err: newError(ErrIO, StageReadConfig, "/tmp/flexgen/run-1/folder",
				errors.New("read config file a.txt: open /tmp/flexgen/run-1/folder/a.txt: permission denied")),
			want: "Generation failed: read_config: folder: read config file a.txt: open folder/a.txt: permission denied",
		},
		{
			name: "staging errors are not prefixed",
			err:  newError(ErrIO, StageExtract, "cfg.zip", ErrUnsafeArchivePath),
			want: "extract_archive: cfg.zip: archive entry escapes extraction folder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.err); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", newError(ErrIO, StageWrite, "out.xlsx", cause))

	if !errors.Is(err, ErrIO) {
		t.Error("errors.Is(err, ErrIO) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if KindOf(err) != ErrIO {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), ErrIO)
	}
	if !IsPipelineError(err) {
		t.Error("IsPipelineError() = false, want true")
	}
	if KindOf(errors.New("plain")) != nil {
		t.Error("KindOf(plain) should be nil")
	}
}
