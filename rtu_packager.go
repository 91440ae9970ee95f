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
	"strings"
)

// RTUPackager seals RTU frames with the trailing CRC.
type RTUPackager struct{}

// NewRTUPackager creates a new RTU packager.
func NewRTUPackager() *RTUPackager {
	return &RTUPackager{}
}

// AppendCRC returns a copy of data followed by its CRC, low byte first.
func (p *RTUPackager) AppendCRC(data []byte) []byte {
	lo, hi := Checksum(data)
	frame := make([]byte, len(data), len(data)+2)
	copy(frame, data)
	return append(frame, lo, hi)
}

// Pack creates an RTU frame from unit address, PDU and CRC.
func (p *RTUPackager) Pack(unit uint8, pdu []byte) ([]byte, error) {
	if unit == 0 || unit > 247 {
		return nil, fmt.Errorf("invalid unit address: %d (must be 1-247)", unit)
	}
	if len(pdu) == 0 {
		return nil, fmt.Errorf("PDU cannot be empty")
	}
	if len(pdu) > 253 {
		return nil, fmt.Errorf("PDU too long: %d bytes (max 253)", len(pdu))
	}

	adu := make([]byte, 0, 1+len(pdu))
	adu = append(adu, unit)
	adu = append(adu, pdu...)
	return p.AppendCRC(adu), nil
}

// VerifyCRC reports whether the last two bytes of frame are its CRC.
func (p *RTUPackager) VerifyCRC(frame []byte) bool {
	if len(frame) < 4 {
		return false
	}
	dataLen := len(frame) - 2
	received := uint16(frame[dataLen]) | uint16(frame[dataLen+1])<<8
	return CRC16(frame[:dataLen]) == received
}

// DumpFrame returns a hex dump of the frame with annotations
func (p *RTUPackager) DumpFrame(frame []byte) string {
	if len(frame) == 0 {
		return "Empty frame"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Frame Length: %d bytes\n", len(frame))
	fmt.Fprintf(&b, "Hex: %s\n", FormatHex(frame))
	fmt.Fprintf(&b, "Index: %s\n", formatIndexedHex(frame))
	fmt.Fprintf(&b, "Unit Address: %d (0x%02X)\n", frame[0], frame[0])

	if len(frame) >= 2 {
		fc := FunctionCode(frame[1])
		fmt.Fprintf(&b, "Function Code: 0x%02X (%s)\n", frame[1], fc.Name())
	}
	if len(frame) >= 4 {
		dataLen := len(frame) - 2
		calculated := CRC16(frame[:dataLen])
		received := uint16(frame[dataLen]) | uint16(frame[dataLen+1])<<8
		fmt.Fprintf(&b, "PDU: %s\n", FormatHex(frame[1:dataLen]))
		fmt.Fprintf(&b, "CRC Calculated: 0x%04X\n", calculated)
		fmt.Fprintf(&b, "CRC Received: 0x%04X\n", received)
		fmt.Fprintf(&b, "CRC Valid: %t\n", calculated == received)
	}
	return b.String()
}
