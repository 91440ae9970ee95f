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
	"encoding/binary"
	"math"
)

// integer domains, inclusive
var formatRanges = map[DataFormat][2]float64{
	FormatUint16: {0, math.MaxUint16},
	FormatInt16:  {math.MinInt16, math.MaxInt16},
	FormatUint32: {0, math.MaxUint32},
	FormatInt32:  {math.MinInt32, math.MaxInt32},
}

// Convert encodes req.Value big-endian in req.Format and reorders the group
// per req.Order. An empty order means AB CD.
func Convert(req ConversionRequest) ([]byte, error) {
	format, err := ParseDataFormat(string(req.Format))
	if err != nil {
		return nil, err
	}
	order := OrderABCD
	if req.Order != "" {
		if order, err = ParseByteOrder(string(req.Order)); err != nil {
			return nil, err
		}
	}

	var raw []byte
	if format == FormatFloat32 {
		raw = binary.BigEndian.AppendUint32(nil, math.Float32bits(float32(req.Value)))
	} else {
		bounds := formatRanges[format]
		v := req.Value
		rerr := &RangeError{Format: format, Value: v, Min: bounds[0], Max: bounds[1]}
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			rerr.Reason = "not a finite number"
			return nil, rerr
		case v != math.Trunc(v):
			rerr.Reason = "not an integer"
			return nil, rerr
		case v < bounds[0] || v > bounds[1]:
			return nil, rerr
		}
		raw = encodeInteger(int64(v), format.Width())
	}
	return reorderBytes(raw, order), nil
}

// encodeInteger writes v in two's complement, most significant byte first.
func encodeInteger(v int64, width int) []byte {
	modulus := int64(1) << (8 * width)
	if v < 0 {
		v += modulus
	}
	if width == 2 {
		return binary.BigEndian.AppendUint16(nil, uint16(v))
	}
	return binary.BigEndian.AppendUint32(nil, uint32(v))
}
