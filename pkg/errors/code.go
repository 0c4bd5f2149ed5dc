package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 17000-17999: Task dispatch & sandbox errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Forbidden           ErrorCode = 10005
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError ErrorCode = 10100

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300

	// ========== Task Dispatch & Sandbox Errors (17000-17999) ==========

	// Dispatch (17000-17099)
	TaskUnrecognized ErrorCode = 17000

	// Sandbox & inputs (17100-17199)
	SandboxAccessDenied ErrorCode = 17100
	InputNotFound       ErrorCode = 17101
	MalformedInput      ErrorCode = 17102

	// Delegated work (17200-17299)
	ExternalProcessFailed ErrorCode = 17200
	RemoteCallFailed      ErrorCode = 17201
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Forbidden:           "Access forbidden",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",
	DatabaseError:       "Database operation failed",
	ValidationFailed:    "Validation failed",

	// Task
	TaskUnrecognized:      "Task not recognized",
	SandboxAccessDenied:   "Access outside the sandbox is prohibited",
	InputNotFound:         "Required input file not found",
	MalformedInput:        "Input does not match the expected format",
	ExternalProcessFailed: "External process failed",
	RemoteCallFailed:      "Remote inference call failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code.
// Every task failure kind has exactly one status.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case Success:
		return 200
	case InvalidParams, ValidationFailed, TaskUnrecognized:
		return 400
	case Forbidden, SandboxAccessDenied:
		return 403
	case NotFound, InputNotFound:
		return 404
	case MalformedInput:
		return 422
	case RemoteCallFailed:
		return 502
	case ServiceUnavailable:
		return 503
	case Timeout:
		return 504
	default:
		return 500
	}
}
