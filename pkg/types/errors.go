package types

import (
	"errors"
	"fmt"
)

// ReasonCode identifies why the engine rejected an execution attempt.
// Every engine failure aborts the whole atomic unit and surfaces one of these.
type ReasonCode string

const (
	ReasonAccessDenied          ReasonCode = "ACCESS_DENIED"
	ReasonInvalidCaller         ReasonCode = "INVALID_CALLER"
	ReasonInvalidInitiator      ReasonCode = "INVALID_INITIATOR"
	ReasonReentrancyBlocked     ReasonCode = "REENTRANCY_BLOCKED"
	ReasonGasPriceExceeded      ReasonCode = "GAS_PRICE_EXCEEDED"
	ReasonUnprofitableTrade     ReasonCode = "UNPROFITABLE_TRADE"
	ReasonInsufficientRepayment ReasonCode = "INSUFFICIENT_REPAYMENT"
	ReasonNothingToWithdraw     ReasonCode = "NOTHING_TO_WITHDRAW"
)

// EngineError is a rejected execution with a specific reason code.
type EngineError struct {
	Code    ReasonCode
	Message string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewEngineError creates an EngineError with a formatted message.
func NewEngineError(code ReasonCode, format string, args ...any) *EngineError {
	return &EngineError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsReason reports whether err carries the given engine reason code.
func IsReason(err error, code ReasonCode) bool {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Code == code
	}

	return false
}

// ReasonOf extracts the reason code from err, or "" if err is not an EngineError.
func ReasonOf(err error) ReasonCode {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Code
	}

	return ""
}
