package core

// error_messages.go maps generator failures to user-facing messages with a
// support code, and to HTTP status codes.
//
// Codes:
//
//	VAL001  - Missing excel_file or folder_zip                 (400)
//	VAL002  - Any other rejected upload, e.g. too large        (400)
//	IO001   - A file could not be read, written or extracted   (500)
//	PARSE001 - A spreadsheet could not be parsed               (500)
//	PROC001 - The merge failed, e.g. the join key is missing   (500)
//	OUT001  - The pipeline finished without an output file     (500)
//	UPL002  - All generation slots are busy                    (503)
//	UPL004  - The request was cancelled                        (500)
//	UPL005  - The request timed out                            (500)
//	ERR000  - Anything else                                    (500)
//
// Mapping is by error identity (errors.Is), never by message text.

import (
	"context"
	"errors"
	"net/http"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorMapping struct {
	target error
	status int
	msg    UserMessage
}

// errorMappings is checked in order; the first target err wraps wins.
var errorMappings = []errorMapping{
	{
		target: ErrMissingFiles,
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "Missing required files (excel_file or folder_zip)",
			Action:  "Attach both the spreadsheet and the zip of .txt configuration files",
			Code:    "VAL001",
		},
	},
	{
		target: ErrValidation,
		status: http.StatusBadRequest,
		msg: UserMessage{
			Message: "The upload was rejected",
			Action:  "Check the form fields and the upload size, then try again",
			Code:    "VAL002",
		},
	},
	{
		target: ErrTooManyGenerations,
		status: http.StatusServiceUnavailable,
		msg: UserMessage{
			Message: "Too many generations in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target: ErrParse,
		status: http.StatusInternalServerError,
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Upload a valid .xlsx workbook",
			Code:    "PARSE001",
		},
	},
	{
		target: ErrProcessing,
		status: http.StatusInternalServerError,
		msg: UserMessage{
			Message: "The spreadsheets could not be merged",
			Action:  "Make sure the spreadsheet has a DESCRIPTIVE_FLEXFIELD_NAME column and no value exceeds 32767 characters",
			Code:    "PROC001",
		},
	},
	{
		target: ErrOutputMissing,
		status: http.StatusInternalServerError,
		msg: UserMessage{
			Message: "Output file not generated",
			Action:  "Please try again or contact support",
			Code:    "OUT001",
		},
	},
	{
		target: ErrIO,
		status: http.StatusInternalServerError,
		msg: UserMessage{
			Message: "A file could not be read or written",
			Action:  "Check that the zip archive is valid and try again",
			Code:    "IO001",
		},
	},
	{
		target: context.Canceled,
		status: http.StatusInternalServerError,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target: context.DeadlineExceeded,
		status: http.StatusInternalServerError,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// MapError converts an error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if m, ok := lookup(err); ok {
		return m.msg
	}
	return defaultMessage
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Describe returns the detail message reported to clients. Failures in the
// generation stages are prefixed "Generation failed: " and keep the cause
// text so the client can see, for instance, which join key was missing.
// Server-side directories are stripped; only file names are reported.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch {
	case IsPipelineError(err):
		return "Generation failed: " + e.clientText()
	case errors.Is(err, ErrMissingFiles), errors.Is(err, ErrOutputMissing):
		return MapError(err).Message
	case errors.Is(err, ErrValidation):
		return e.Err.Error()
	}
	return e.clientText()
}
