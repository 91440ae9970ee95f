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

// Encoder is the offline frame construction API consumed by the CLI and HTTP layers.
type Encoder interface {
	Build(req FrameRequest) (*Frame, error)        // Build assembles a request frame with trailing CRC
	Convert(req ConversionRequest) ([]byte, error) // Convert renders a numeric value as an ordered byte group
}

// FunctionCode is a Modbus request function code supported by the builder.
type FunctionCode uint8

const (
	ReadCoils              FunctionCode = 0x01
	ReadDiscreteInputs     FunctionCode = 0x02
	ReadHoldingRegisters   FunctionCode = 0x03
	ReadInputRegisters     FunctionCode = 0x04
	WriteSingleCoil        FunctionCode = 0x05
	WriteSingleRegister    FunctionCode = 0x06
	WriteMultipleCoils     FunctionCode = 0x0F
	WriteMultipleRegisters FunctionCode = 0x10
)

var functionNames = map[FunctionCode]string{
	ReadCoils:              "Read Coils",
	ReadDiscreteInputs:     "Read Discrete Inputs",
	ReadHoldingRegisters:   "Read Holding Registers",
	ReadInputRegisters:     "Read Input Registers",
	WriteSingleCoil:        "Write Single Coil",
	WriteSingleRegister:    "Write Single Register",
	WriteMultipleCoils:     "Write Multiple Coils",
	WriteMultipleRegisters: "Write Multiple Registers",
}

// FunctionCodes lists the supported codes in ascending order.
func FunctionCodes() []FunctionCode {
	return []FunctionCode{
		ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters,
		WriteSingleCoil, WriteSingleRegister, WriteMultipleCoils, WriteMultipleRegisters,
	}
}

// ParseFunctionCode parses a 1-2 digit hex token such as "03", "0f" or "0x10".
func ParseFunctionCode(token string) (FunctionCode, error) {
	s := strings.TrimSpace(token)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > 2 {
		return 0, &ValidationError{Field: FieldFunctionCode, Reason: fmt.Sprintf("%q is not a 2-digit hex code", token)}
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, &ValidationError{Field: FieldFunctionCode, Reason: fmt.Sprintf("%q is not a 2-digit hex code", token)}
	}
	fc := FunctionCode(v)
	if !fc.Valid() {
		return 0, &ValidationError{Field: FieldFunctionCode, Reason: fmt.Sprintf("unsupported function code 0x%02X", v)}
	}
	return fc, nil
}

// Valid reports whether fc is one of the supported codes.
func (fc FunctionCode) Valid() bool {
	_, ok := functionNames[fc]
	return ok
}

// IsRead reports whether fc is one of the four read functions.
func (fc FunctionCode) IsRead() bool {
	return fc >= ReadCoils && fc <= ReadInputRegisters
}

// Name returns the protocol name of the function.
func (fc FunctionCode) Name() string {
	if name, ok := functionNames[fc]; ok {
		return name
	}
	return "Unknown"
}

// String renders the code as a 2-digit uppercase hex token.
func (fc FunctionCode) String() string {
	return fmt.Sprintf("%02X", uint8(fc))
}

// MarshalText renders the code in its hex token form.
func (fc FunctionCode) MarshalText() ([]byte, error) {
	return []byte(fc.String()), nil
}

// UnmarshalText parses the hex token form, see ParseFunctionCode.
func (fc *FunctionCode) UnmarshalText(text []byte) error {
	v, err := ParseFunctionCode(string(text))
	if err != nil {
		return err
	}
	*fc = v
	return nil
}

// FrameRequest carries the human supplied parameters of a frame.
type FrameRequest struct {
	UnitAddress  int          `json:"unitAddress" yaml:"unitAddress"`
	Function     FunctionCode `json:"functionCode" yaml:"functionCode"`
	StartAddress string       `json:"startAddress" yaml:"startAddress"` // 1-4 hex digits
	Payload      string       `json:"payload" yaml:"payload"`
}

// FrameView partitions a frame into display segments, each rendered as spaced hex.
type FrameView struct {
	Address         string `json:"address"`
	Function        string `json:"function"`
	RegisterAddress string `json:"registerAddress"`
	Content         string `json:"content"`
	Checksum        string `json:"checksum"`
}

// String joins the non-empty segments in wire order.
func (v FrameView) String() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{v.Address, v.Function, v.RegisterAddress, v.Content, v.Checksum} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Frame is a complete RTU request: unit, function, start address, payload and CRC.
type Frame struct {
	Bytes []byte    `json:"bytes"`
	View  FrameView `json:"view"`
}

// Hex renders the frame as uppercase space separated hex.
func (f *Frame) Hex() string {
	return FormatHex(f.Bytes)
}

// DataFormat is the numeric target of a conversion.
type DataFormat string

const (
	FormatUint16  DataFormat = "uint16"
	FormatInt16   DataFormat = "int16"
	FormatUint32  DataFormat = "uint32"
	FormatInt32   DataFormat = "int32"
	FormatFloat32 DataFormat = "float32"
)

// ParseDataFormat resolves a format name case-insensitively.
func ParseDataFormat(s string) (DataFormat, error) {
	f := DataFormat(strings.ToLower(strings.TrimSpace(s)))
	if f.Width() == 0 {
		return "", &FormatError{Field: FieldFormat, Value: s}
	}
	return f, nil
}

// Width returns the encoded size in bytes, or 0 for an unknown format.
func (f DataFormat) Width() int {
	switch f {
	case FormatUint16, FormatInt16:
		return 2
	case FormatUint32, FormatInt32, FormatFloat32:
		return 4
	}
	return 0
}

// ByteOrder names the arrangement of the bytes AB CD of a big-endian value.
type ByteOrder string

const (
	OrderABCD ByteOrder = "AB CD"
	OrderDCBA ByteOrder = "DC BA"
	OrderBADC ByteOrder = "BA DC"
	OrderCDAB ByteOrder = "CD AB"
)

// ParseByteOrder accepts "AB CD" or the compact "ABCD" spelling, in any case.
func ParseByteOrder(s string) (ByteOrder, error) {
	compact := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	switch compact {
	case "ABCD":
		return OrderABCD, nil
	case "DCBA":
		return OrderDCBA, nil
	case "BADC":
		return OrderBADC, nil
	case "CDAB":
		return OrderCDAB, nil
	}
	return "", &FormatError{Field: FieldByteOrder, Value: s}
}

// ConversionRequest describes a numeric value to render as payload bytes.
type ConversionRequest struct {
	Value  float64    `json:"value" yaml:"value"`
	Format DataFormat `json:"format" yaml:"format"`
	Order  ByteOrder  `json:"byteOrder" yaml:"byteOrder"`
}
