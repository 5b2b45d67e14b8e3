package errcode

import (
	"errors"

	"mlx90614-go/drivers/mlx90614"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	UnknownDevice Code = "unknown_device"
	Timeout       Code = "timeout"

	// MLX90614 transaction phases.
	BusInitFailed Code = "bus_init_failed"
	AddressNACK   Code = "address_nack"
	ReceiveFailed Code = "receive_failed"
	SendFailed    Code = "send_failed"
	PECMismatch   Code = "pec_mismatch"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to MapDriverErr.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return MapDriverErr(err)
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	var be *mlx90614.BusError
	if errors.As(err, &be) {
		switch be.Phase {
		case mlx90614.PhaseInit:
			return BusInitFailed
		case mlx90614.PhaseAddress:
			return AddressNACK
		case mlx90614.PhaseReceive:
			return ReceiveFailed
		case mlx90614.PhaseSend:
			return SendFailed
		case mlx90614.PhaseVerify:
			return PECMismatch
		}
	}
	switch {
	case errors.Is(err, mlx90614.ErrEmissivityRange),
		errors.Is(err, mlx90614.ErrInvalidAddress),
		errors.Is(err, mlx90614.ErrWriteDelay):
		return InvalidParams
	}
	return Error
}
