// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package modbus

import (
	"errors"
	"fmt"
)

// Request field names reported by ValidationError, RangeError and FormatError.
const (
	FieldUnitAddress  = "unitAddress"
	FieldFunctionCode = "functionCode"
	FieldStartAddress = "startAddress"
	FieldPayload      = "payload"
	FieldValue        = "value"
	FieldFormat       = "format"
	FieldByteOrder    = "byteOrder"
)

// ValidationError reports a malformed or out-of-range frame request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RangeError reports a conversion value outside the target format's domain.
// A non-empty Reason replaces the range in the message, e.g. for 25.7 as int16.
type RangeError struct {
	Format DataFormat
	Value  float64
	Min    float64
	Max    float64
	Reason string
}

func (e *RangeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("value %v invalid for %s: %s", e.Value, e.Format, e.Reason)
	}
	return fmt.Sprintf("value %v out of range for %s [%.0f, %.0f]", e.Value, e.Format, e.Min, e.Max)
}

// FormatError reports an unrecognised conversion format or byte order.
type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported %s: %q", e.Field, e.Value)
}

// ErrorField returns the request field an error refers to, or "" when
// err is not one of the package's request errors.
func ErrorField(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	var re *RangeError
	if errors.As(err, &re) {
		return FieldValue
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
