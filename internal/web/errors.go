package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail server-side and returned
// to the client as a short message, a suggested action and a code that
// support can look up:
//
//	IN001   - No export matches the discovery pattern
//	FILE002 - The export could not be parsed
//	FILE003 - The export headers collide after renaming
//	DB004   - Unable to connect to database
//	DB005   - Database connection was interrupted
//	DB006   - Operation timed out
//	DB008   - Publishing is not configured
//	RUN001  - Every pipeline run slot is busy
//	GEN001  - Anything else

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/outreach/internal/loader"
	"github.com/JonMunkholm/outreach/internal/logging"
	"github.com/JonMunkholm/outreach/internal/pipeline"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// UserMessage is the client-facing description of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

var errPublishDisabled = errors.New("publishing disabled: no database configured")

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched against the lowercased error text, first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "rename produces duplicate column",
		msg: UserMessage{
			Message: "Two export columns map to the same canonical name",
			Action:  "Remove the duplicate column from the export",
			Code:    "FILE003",
		},
	},
	{
		pattern: "parse ",
		msg: UserMessage{
			Message: "The export is not a valid delimited file",
			Action:  "Re-export the event log as CSV or XLSX",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The export has no header row",
			Action:  "Re-export the event log with column headers",
			Code:    "FILE002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
}

// MapError converts an error into a user-facing message.
func MapError(err error) UserMessage {
	switch {
	case err == nil:
		return UserMessage{}
	case errors.Is(err, loader.ErrNoInputFound):
		return UserMessage{
			Message: "No event-log export was found",
			Action:  "Place an export in the configured input directory",
			Code:    "IN001",
		}
	case errors.Is(err, pipeline.ErrTooManyRuns):
		return UserMessage{
			Message: "The server is busy processing other requests",
			Action:  "Please try again in a few moments",
			Code:    "RUN001",
		}
	case errors.Is(err, errPublishDisabled):
		return UserMessage{
			Message: "Publishing is not configured",
			Action:  "Set DATABASE_URL to enable publishing",
			Code:    "DB008",
		}
	}

	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "GEN001",
	}
}

// statusFor picks the HTTP status for a pipeline or publish error.
func statusFor(err error) int {
	switch MapError(err).Code {
	case "IN001":
		return http.StatusNotFound
	case "FILE002", "FILE003":
		return http.StatusUnprocessableEntity
	case "DB004", "DB005", "DB008", "RUN001":
		return http.StatusServiceUnavailable
	case "DB006":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and writes the mapped JSON response.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
