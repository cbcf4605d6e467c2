package web

// messages.go maps conversion errors to user messages with support codes.
//
// Codes:
//
//	SCH001 - Schema mismatch: the table does not fit its declared layout
//	REQ001 - Missing required value: a key column could not be read
//	ENC001 - Encoding failure: text could not be decoded
//	SEC001 - Malformed section: a network file section header is unusable
//	PRJ001 - Unknown projection: a coordinate system code is not defined
//	VAL001 - Invalid input: an argument or setting was rejected
//	FILE001 - File too large
//	FILE002 - Invalid archive: the upload is not a zip file
//	FILE004 - No file: the form has no "file" field
//	UPL002 - Busy: every conversion slot is taken
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//	ERR000 - Unknown error, check the server log for the request id
//
// Kinds are matched with errors.Is, in the order listed. A required-value
// failure wraps a validation failure, so REQ001 is checked first.

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/transitconv/internal/feed"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Status  int    // HTTP status to answer with
}

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
)

type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{table.ErrMissingRequiredColumn, UserMessage{
		Message: "A required value is missing or unreadable",
		Action:  "Check the key columns of the reported table",
		Code:    "REQ001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{table.ErrSchemaMismatch, UserMessage{
		Message: "The table does not match its expected layout",
		Action:  "Check the column names and the number of values per row",
		Code:    "SCH001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{table.ErrEncodingFailure, UserMessage{
		Message: "The file contains text that could not be decoded",
		Action:  "Save the file as UTF-8 or windows-1252",
		Code:    "ENC001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{table.ErrMalformedSection, UserMessage{
		Message: "A section of the network file is malformed",
		Action:  "Check the header line that follows the section marker",
		Code:    "SEC001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{projection.ErrUnknownProjection, UserMessage{
		Message: "The coordinate system is not supported",
		Action:  "Use a supported EPSG code or add a projection definition",
		Code:    "PRJ001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{table.ErrValidation, UserMessage{
		Message: "The input was rejected",
		Action:  "Check the request parameters and file contents",
		Code:    "VAL001",
		Status:  http.StatusBadRequest,
	}},
	{feed.ErrUnknownEntity, UserMessage{
		Message: "The input was rejected",
		Action:  "Check the request parameters and file contents",
		Code:    "VAL001",
		Status:  http.StatusBadRequest,
	}},
	{network.ErrUnknownSection, UserMessage{
		Message: "The input was rejected",
		Action:  "Check the request parameters and file contents",
		Code:    "VAL001",
		Status:  http.StatusBadRequest,
	}},
	{errFileTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the network or upload a smaller feed",
		Code:    "FILE001",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{zip.ErrFormat, UserMessage{
		Message: "The upload is not a valid zip archive",
		Action:  "Upload the feed as a .zip file",
		Code:    "FILE002",
		Status:  http.StatusBadRequest,
	}},
	{errNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Attach the file in the \"file\" form field",
		Code:    "FILE004",
		Status:  http.StatusBadRequest,
	}},
	{ErrTooManyConversions, UserMessage{
		Message: "Too many conversions in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
		Status:  http.StatusServiceUnavailable,
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
		Status:  http.StatusRequestTimeout,
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "UPL005",
		Status:  http.StatusGatewayTimeout,
	}},
}

// defaultMessage is returned when no kind matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts a technical error to a user-friendly message. A nil
// error yields the zero message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		err = errFileTooLarge
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
