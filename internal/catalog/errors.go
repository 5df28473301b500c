// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
)

// Error kinds reported by Load and Parse. Use errors.Is to classify a ConfigError.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrInvalidSyntax    = errors.New("invalid syntax")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrMalformedEntry   = errors.New("malformed category entry")
)

// ConfigError describes why a pattern catalog could not be loaded
type ConfigError struct {
	Source string // file path or caller supplied label
	Key    string // offending category key, if any
	Kind   error  // one of the Err* kinds above
	Cause  error  // underlying decoder or filesystem error, may be nil
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("pattern catalog %s: %v", e.Source, e.Kind)
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *ConfigError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newConfigError(source, key string, kind, cause error) *ConfigError {
	return &ConfigError{Source: source, Key: key, Kind: kind, Cause: cause}
}
