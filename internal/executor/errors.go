package executor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"

	"solana_sniper/internal/helper"
)

var (
	// ErrAllEndpointsFailed wraps the joined per-endpoint errors.
	ErrAllEndpointsFailed = errors.New("all endpoints failed")
	// ErrSlippageExceeded means a usable quote came back but its slippage is above the bound.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	ErrNoEndpoints      = errors.New("no endpoints configured")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Error classes used in logs and metric labels.
const (
	ClassTransient = "transient"
	ClassData      = "data"
	ClassSlippage  = "slippage"
	ClassOther     = "other"
)

// IsTransient reports network-level failures worth retrying on a later tick.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var se *helper.StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || se.Code == http.StatusTooManyRequests
	}
	return false
}

// Classify maps an execution error to one of the Class* labels.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrSlippageExceeded):
		return ClassSlippage
	case errors.Is(err, helper.ErrMalformed):
		return ClassData
	case IsTransient(err):
		return ClassTransient
	default:
		var se *helper.StatusError
		if errors.As(err, &se) {
			return ClassData
		}
		return ClassOther
	}
}
