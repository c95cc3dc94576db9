package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeInvalidTier, "unknown tier %q", "barony")
	if err.Code != ErrCodeInvalidTier || err.Message != `unknown tier "barony"` {
		t.Errorf("New() = %+v", err)
	}
	if got, want := err.Error(), `INVALID_TIER: unknown tier "barony"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("connection refused")
	wrapped := Wrap(ErrCodeDataUnavailable, cause, "fetch %s", "county")
	if got, want := wrapped.Error(), "DATA_UNAVAILABLE: fetch county: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(wrapped, cause) || errors.Unwrap(wrapped) != cause {
		t.Error("Wrap() should expose its cause to errors.Is and errors.Unwrap")
	}
}

func TestIs(t *testing.T) {
	notFound := New(ErrCodeTierNotFound, "no duchy tier")
	unavailable := Wrap(ErrCodeDataUnavailable, notFound, "tier duchy is unavailable")

	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"own code", notFound, ErrCodeTierNotFound, true},
		{"other code", notFound, ErrCodeRegionNotFound, false},
		{"outer code", unavailable, ErrCodeDataUnavailable, true},
		{"inner code", unavailable, ErrCodeTierNotFound, true},
		{"through fmt wrapping", fmt.Errorf("load: %w", unavailable), ErrCodeTierNotFound, true},
		{"plain error", errors.New("boom"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCodeAndUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    Code
		message string
	}{
		{"coded", New(ErrCodeRegionNotFound, "no region c_x in county"), ErrCodeRegionNotFound, "no region c_x in county"},
		{"wrapped by fmt", fmt.Errorf("inspect: %w", New(ErrCodeNotReady, "still loading")), ErrCodeNotReady, "still loading"},
		{"plain", errors.New("disk full"), "", "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if got := UserMessage(tt.err); got != tt.message {
				t.Errorf("UserMessage() = %q, want %q", got, tt.message)
			}
		})
	}
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should be empty")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid tier", New(ErrCodeInvalidTier, "bad"), 400},
		{"region not found", New(ErrCodeRegionNotFound, "x"), 404},
		{"session not found wrapped", Wrap(ErrCodeSessionNotFound, errors.New("gone"), "lookup"), 404},
		{"rate limited", New(ErrCodeRateLimited, "slow down"), 429},
		{"not ready", New(ErrCodeNotReady, "loading"), 409},
		{"unavailable", New(ErrCodeDataUnavailable, "fetch failed"), 502},
		{"timeout", New(ErrCodeTimeout, "slow"), 504},
		{"plain error", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
