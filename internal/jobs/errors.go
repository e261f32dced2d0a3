package jobs

// errors.go defines the error taxonomy shared by the loader and the query
// layer, plus the mapping from those errors to coded user messages.
//
// Codes:
//
//	FILE001 - Dataset not found: the source file is missing or unreadable
//	FILE005 - Empty dataset file: the file has no header row
//	VAL001  - Invalid input: malformed salary or salary range
//	QRY001  - Empty result: no record qualifies for an aggregate
//	BUSY001 - Too many dataset files being parsed at once
//	ERR000  - Unknown error (fallback)
//
// Context errors from a cancelled request are mapped as well so the HTTP
// layer can report them without a special case.

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when a dataset path is missing or unreadable.
	ErrFileNotFound = errors.New("dataset file not found")

	// ErrEmptyFile is returned when a dataset file has no header row.
	ErrEmptyFile = errors.New("empty dataset file")

	// ErrInvalidInput is returned for malformed arguments to salary checks.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResult is returned when an aggregate has nothing to aggregate.
	ErrEmptyResult = errors.New("empty result")

	// ErrTooManyLoads is returned when no parse slot frees up in time.
	ErrTooManyLoads = errors.New("too many concurrent dataset loads")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorMapping struct {
	target error
	msg    UserMessage
}

// errorMappings is checked in order with errors.Is; first match wins.
var errorMappings = []errorMapping{
	{
		target: ErrFileNotFound,
		msg: UserMessage{
			Message: "Dataset file not found",
			Action:  "Check the dataset path or catalog entry",
			Code:    "FILE001",
		},
	},
	{
		target: ErrEmptyFile,
		msg: UserMessage{
			Message: "The dataset file is empty",
			Action:  "Provide a CSV file with a header row",
			Code:    "FILE005",
		},
	},
	{
		target: ErrInvalidInput,
		msg: UserMessage{
			Message: "Invalid salary or salary range",
			Action:  "Use whole numbers and make sure min_salary <= max_salary",
			Code:    "VAL001",
		},
	},
	{
		target: ErrEmptyResult,
		msg: UserMessage{
			Message: "No records qualify for this query",
			Action:  "Check that the dataset has numeric salary values",
			Code:    "QRY001",
		},
	},
	{
		target: ErrTooManyLoads,
		msg: UserMessage{
			Message: "The server is busy loading datasets",
			Action:  "Please try again in a moment",
			Code:    "BUSY001",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again later",
			Code:    "REQ002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Returns the zero UserMessage for a nil error and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
