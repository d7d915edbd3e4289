package engine

import "errors"

// ErrRejected is wrapped by every *RejectionError.
var ErrRejected = errors.New("engine rejected request")

// RejectionError reports that the engine refused a request, e.g. an order
// list containing a malformed order. Error returns the engine's reason
// verbatim so it can be shown to the operator unchanged.
type RejectionError struct {
	Op     string
	Party  Party
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}

// IsRejection reports whether err is, or wraps, an engine rejection.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}

// Reason extracts the verbatim engine reason from err, or err.Error() if err
// is not a rejection.
func Reason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}
