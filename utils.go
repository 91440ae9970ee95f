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

// FormatHex renders bytes as two uppercase hex digits each, space separated.
func FormatHex(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// formatIndexedHex formats a byte slice with its byte indices, e.g. "01[00] 03[01]".
func formatIndexedHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, b := range data {
		if i > 0 {
			builder.WriteByte(' ')
		}
		fmt.Fprintf(&builder, "%02X[%02d]", b, i)
	}
	return builder.String()
}

// ParseHexBytes decodes whitespace separated hex tokens of one or two digits,
// e.g. "01 02 0a". An empty or blank string yields an empty slice.
func ParseHexBytes(s string) ([]byte, error) {
	tokens := strings.Fields(s)
	out := make([]byte, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) > 2 {
			return nil, fmt.Errorf("hex token %q longer than one byte", tok)
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex token %q", tok)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// reorderBytes rearranges a big-endian group AB or ABCD into the given order.
// For 2-byte groups only DC BA (a plain swap) changes anything.
func reorderBytes(data []byte, order ByteOrder) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	switch len(data) {
	case 2:
		if order == OrderDCBA {
			out[0], out[1] = data[1], data[0]
		}
	case 4:
		switch order {
		case OrderDCBA:
			out = []byte{data[3], data[2], data[1], data[0]}
		case OrderBADC:
			out = []byte{data[1], data[0], data[3], data[2]}
		case OrderCDAB:
			out = []byte{data[2], data[3], data[0], data[1]}
		}
	}
	return out
}
