package es

import (
	"fmt"
	"log/slog"
)

const maxHandleLen = 255

// Handle names one aggregate instance. It is used verbatim as the backing store scope.
type Handle string

func (h Handle) String() string { return string(h) }

// Validate accepts non-empty handles of at most 255 characters from [A-Za-z0-9_-].
func (h Handle) Validate() error {
	if h == "" {
		return fmt.Errorf("%w: empty handle", ErrInvalidHandle)
	}
	if len(h) > maxHandleLen {
		return fmt.Errorf("%w: handle longer than %d", ErrInvalidHandle, maxHandleLen)
	}
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidHandle, string(h), r)
		}
	}
	return nil
}

func (h Handle) SlogAttr() slog.Attr { return slog.String("handle", string(h)) }

// ParseHandle returns s as a Handle if it is valid.
func ParseHandle(s string) (Handle, error) {
	h := Handle(s)
	if err := h.Validate(); err != nil {
		return "", err
	}
	return h, nil
}
