package convert

import "fmt"

// Reason classifies a conversion failure.
type Reason string

const (
	ReasonNonZeroExit   Reason = "non_zero_exit"
	ReasonOutputMissing Reason = "output_missing"
	ReasonOutputEmpty   Reason = "output_empty"
	ReasonInvalidOutput Reason = "invalid_output"
)

// ConversionError is returned for every way the external converter can fail
// to produce a usable output. Callers treat all reasons alike.
type ConversionError struct {
	Reason Reason
	// Output is the tail of the converter's combined stdout/stderr, if any.
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := "conversion failed: " + string(e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += fmt.Sprintf(" (output: %q)", e.Output)
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }
