package gridexport

import "errors"

// Configuration errors abort an export before any row is fetched; callers
// usually translate them to a 400. Everything else (provider, writer, or
// filesystem failures) is fatal for the request with no retry.
var (
	ErrUnknownFormat  = errors.New("unknown export format")
	ErrFormatDisabled = errors.New("export format is disabled")
	ErrUnknownWriter  = errors.New("unknown writer id")
	ErrInvalidProfile = errors.New("invalid format profile")
	ErrInvalidColumn  = errors.New("invalid column definition")
	ErrBadRequest     = errors.New("malformed export request")
	ErrSheetLimit     = errors.New("sheet row limit exceeded")
)

// IsConfigError reports whether err is a configuration error rather than an
// I/O failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownFormat) ||
		errors.Is(err, ErrFormatDisabled) ||
		errors.Is(err, ErrUnknownWriter) ||
		errors.Is(err, ErrInvalidProfile) ||
		errors.Is(err, ErrInvalidColumn) ||
		errors.Is(err, ErrBadRequest)
}
