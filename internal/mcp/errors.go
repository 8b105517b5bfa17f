package mcp

import (
	"errors"
	"fmt"

	"github.com/cavrolab/flowpanel/internal/device"
	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/command"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
)

// Error codes returned to API clients.
const (
	CodeTableNotFound     = "TABLE_NOT_FOUND"
	CodeRowNotFound       = "ROW_NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidPort       = "INVALID_PORT"
	CodeVolumeOutOfRange  = "VOLUME_OUT_OF_RANGE"
	CodeEmptyProtocol     = "EMPTY_PROTOCOL"
	CodeDeviceUnavailable = "DEVICE_UNAVAILABLE"
	CodeUnknownMethod     = "UNKNOWN_METHOD"
	CodeUnauthorized      = "UNAUTHORIZED"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to API error codes. The message keeps the
// wrapped detail so clients see which row or step failed.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, protocol.ErrTableNotFound):
		return &APIError{Code: CodeTableNotFound, Message: err.Error(), RecoveryHint: "Call list_tables to find a valid table_id"}
	case errors.Is(err, protocol.ErrRowNotFound):
		return &APIError{Code: CodeRowNotFound, Message: err.Error(), RecoveryHint: "Call get_table to see current row indices"}
	case errors.Is(err, protocol.ErrInvalidPort):
		return &APIError{Code: CodeInvalidPort, Message: err.Error(), RecoveryHint: "Ports are numbered 1 to 9"}
	case errors.Is(err, command.ErrVolumeOutOfRange):
		return &APIError{Code: CodeVolumeOutOfRange, Message: err.Error(), RecoveryHint: "Adjust the volume to lie within the configured limits"}
	case errors.Is(err, command.ErrEmptyProtocol):
		return &APIError{Code: CodeEmptyProtocol, Message: err.Error(), RecoveryHint: "Add rows with add_row before submitting"}
	case errors.Is(err, device.ErrDeviceUnavailable):
		return &APIError{Code: CodeDeviceUnavailable, Message: err.Error(), RecoveryHint: "Check that the pump controller is running and reachable"}
	case errors.Is(err, protocol.ErrInvalidInput),
		errors.Is(err, reconcile.ErrUnknownField),
		errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: CodeInvalidInput, Message: err.Error(), RecoveryHint: "Check the parameters against the tool schema"}
	default:
		return nil
	}
}

func invalidParams(err error) *APIError {
	return &APIError{Code: CodeInvalidInput, Message: fmt.Sprintf("invalid params: %v", err), RecoveryHint: "Check the parameters against the tool schema"}
}
