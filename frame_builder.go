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
	"fmt"
	"strconv"
	"strings"
)

const (
	minUnitAddress = 1
	maxUnitAddress = 247
	// unit + function + start address + quantity + byte count + data must fit
	// the 256 byte RTU ADU together with the CRC.
	maxMultiWriteBytes = 247
)

// FrameBuilder assembles RTU request frames from FrameRequest parameters.
// It holds no mutable state and is safe for concurrent use.
type FrameBuilder struct {
	packager *RTUPackager
}

// NewFrameBuilder creates a builder.
func NewFrameBuilder() *FrameBuilder {
	return &FrameBuilder{packager: NewRTUPackager()}
}

var defaultBuilder = NewFrameBuilder()

// BuildFrame builds req with the package level builder.
func BuildFrame(req FrameRequest) (*Frame, error) {
	return defaultBuilder.Build(req)
}

// Build validates req and returns the complete frame including CRC.
// Validation order: unit address, start address, function code, payload.
func (b *FrameBuilder) Build(req FrameRequest) (*Frame, error) {
	if req.UnitAddress < minUnitAddress || req.UnitAddress > maxUnitAddress {
		return nil, &ValidationError{
			Field:  FieldUnitAddress,
			Reason: fmt.Sprintf("%d is outside %d-%d", req.UnitAddress, minUnitAddress, maxUnitAddress),
		}
	}
	start, err := parseStartAddress(req.StartAddress)
	if err != nil {
		return nil, err
	}
	if !req.Function.Valid() {
		return nil, &ValidationError{
			Field:  FieldFunctionCode,
			Reason: fmt.Sprintf("unsupported function code 0x%s", req.Function),
		}
	}
	payload, err := encodePayload(req.Function, req.Payload)
	if err != nil {
		return nil, err
	}

	pdu := make([]byte, 0, 3+len(payload))
	pdu = append(pdu, byte(req.Function), byte(start>>8), byte(start))
	pdu = append(pdu, payload...)

	raw, err := b.packager.Pack(uint8(req.UnitAddress), pdu)
	if err != nil {
		return nil, fmt.Errorf("pack frame: %w", err)
	}
	return &Frame{Bytes: raw, View: viewOf(raw)}, nil
}

// Convert implements Encoder.
func (b *FrameBuilder) Convert(req ConversionRequest) ([]byte, error) {
	return Convert(req)
}

// parseStartAddress accepts 1-4 hex digits; "1" addresses 0x0001.
func parseStartAddress(s string) (uint16, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 0 || len(s) > 4 {
		return 0, &ValidationError{Field: FieldStartAddress, Reason: fmt.Sprintf("%q must be 1-4 hex digits", s)}
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, &ValidationError{Field: FieldStartAddress, Reason: fmt.Sprintf("%q must be 1-4 hex digits", s)}
	}
	return uint16(v), nil
}

// encodePayload produces the bytes that follow the start address.
func encodePayload(fc FunctionCode, raw string) ([]byte, error) {
	switch fc {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters:
		return encodeQuantity(raw)
	case WriteSingleCoil:
		// anything other than FF switches the coil off
		if strings.EqualFold(strings.TrimSpace(raw), "FF") {
			return []byte{0xFF, 0x00}, nil
		}
		return []byte{0x00, 0x00}, nil
	case WriteSingleRegister:
		data, err := ParseHexBytes(raw)
		if err != nil {
			return nil, &ValidationError{Field: FieldPayload, Reason: err.Error()}
		}
		if len(data) != 2 {
			return nil, &ValidationError{Field: FieldPayload, Reason: fmt.Sprintf("write single register needs 2 bytes, got %d", len(data))}
		}
		return data, nil
	case WriteMultipleCoils, WriteMultipleRegisters:
		return encodeMultiWrite(raw)
	}
	return nil, &ValidationError{Field: FieldFunctionCode, Reason: fmt.Sprintf("unsupported function code 0x%s", fc)}
}

// encodeQuantity encodes a decimal item count, default 1, high byte first.
func encodeQuantity(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		s = "1"
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return nil, &ValidationError{Field: FieldPayload, Reason: fmt.Sprintf("quantity %q must be a decimal number in 0-65535", raw)}
	}
	return []byte{byte(n >> 8), byte(n)}, nil
}

// encodeMultiWrite lays out quantity (2 bytes), byte count (1 byte) and data.
// Both quantity and byte count carry the number of data bytes N; this is only
// accurate when one item occupies exactly one byte.
func encodeMultiWrite(raw string) ([]byte, error) {
	data, err := ParseHexBytes(raw)
	if err != nil {
		return nil, &ValidationError{Field: FieldPayload, Reason: err.Error()}
	}
	n := len(data)
	if n == 0 {
		return nil, &ValidationError{Field: FieldPayload, Reason: "multiple write needs at least one data byte"}
	}
	if n > maxMultiWriteBytes {
		return nil, &ValidationError{Field: FieldPayload, Reason: fmt.Sprintf("%d data bytes exceed the limit of %d", n, maxMultiWriteBytes)}
	}
	out := make([]byte, 0, 3+n)
	out = append(out, byte(n>>8), byte(n), byte(n))
	return append(out, data...), nil
}

func viewOf(raw []byte) FrameView {
	end := len(raw) - 2
	return FrameView{
		Address:         FormatHex(raw[0:1]),
		Function:        FormatHex(raw[1:2]),
		RegisterAddress: FormatHex(raw[2:4]),
		Content:         FormatHex(raw[4:end]),
		Checksum:        FormatHex(raw[end:]),
	}
}
