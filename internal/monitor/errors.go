package monitor

import "fmt"

// ProcessingError reports a copy-trade failure for one observed trade.
// It carries enough context to correlate the failure with the
// originating event; the pipeline logs it and moves on.
type ProcessingError struct {
	Signature    string
	TokenAddress string
	Stage        string
	Err          error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s (token %s) failed at %s: %v",
		e.Signature, e.TokenAddress, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func processingErr(signature, token, stage string, err error) *ProcessingError {
	return &ProcessingError{
		Signature:    signature,
		TokenAddress: token,
		Stage:        stage,
		Err:          err,
	}
}
