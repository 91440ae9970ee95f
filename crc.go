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

const (
	crcPolynomial = 0xA001 // reflected 0x8005
	crcInitial    = 0xFFFF
)

var crcTable = makeCRCTable()

// makeCRCTable precomputes the register update for every byte value
// (reflected polynomial 0xA001).
func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// CRC16 calculates the Modbus CRC16 register value over data.
// The low byte of the result is transmitted first.
func CRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc = (crc >> 8) ^ crcTable[uint8(crc)^b]
	}
	return crc
}

// Checksum returns the two checksum bytes of data in wire order.
func Checksum(data []byte) (lo, hi byte) {
	crc := CRC16(data)
	return byte(crc & 0xFF), byte(crc >> 8)
}
