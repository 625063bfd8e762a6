package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNoData          = errors.New("no data for symbol")
	ErrUnknownProvider = errors.New("unknown market data provider")
	ErrMissingAPIKey   = errors.New("provider API key is not set")
)

// APIError is a non-2xx response from an HTTP data source.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("market data request failed with status %d", e.Status)
	}
	return fmt.Sprintf("market data request failed with status %d: %s", e.Status, e.Message)
}

// errorMessage extracts the "error" member of a JSON error body. The member
// may be a string or structured validation details.
func errorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Error, &s); err == nil {
		return s
	}
	return string(payload.Error)
}
