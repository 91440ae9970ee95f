package modbus

import "testing"

func TestCRC16(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected uint16
	}{
		{data: []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}, expected: 0x0A84},
		{data: []byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x01}, expected: 0xCA19},
		{data: []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, expected: 0xCDC5},
		{data: []byte{}, expected: 0xFFFF},     // Empty data, CRC should be initial value
		{data: []byte{0x00}, expected: 0x40BF}, // Single zero byte
	}

	for _, tc := range testCases {
		crc := CRC16(tc.data)
		if crc != tc.expected {
			t.Errorf("CRC16(% X) returned incorrect CRC: got %#04x, expected %#04x", tc.data, crc, tc.expected)
		}
	}
}

func TestChecksum_Empty(t *testing.T) {
	lo, hi := Checksum(nil)
	if lo != 0xFF || hi != 0xFF {
		t.Errorf("Checksum(empty) = %02X %02X, want FF FF", lo, hi)
	}
}

func TestChecksum_WireOrder(t *testing.T) {
	lo, hi := Checksum([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01})
	if lo != 0x84 || hi != 0x0A {
		t.Errorf("Checksum = %02X %02X, want 84 0A", lo, hi)
	}
}

// Appending a sequence's own checksum must yield a zero register.
func TestChecksum_SelfVerification(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xFF},
		{0x01, 0x03, 0x00, 0x00, 0x00, 0x01},
		{0x11, 0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02},
		[]byte("the quick brown fox"),
	}
	for i := 0; i < 64; i++ {
		buf := make([]byte, i)
		for j := range buf {
			buf[j] = byte(i*31 + j*7)
		}
		inputs = append(inputs, buf)
	}

	for _, in := range inputs {
		lo, hi := Checksum(in)
		withCRC := append(append([]byte{}, in...), lo, hi)
		gotLo, gotHi := Checksum(withCRC)
		if gotLo != 0 || gotHi != 0 {
			t.Errorf("self check of % X gave %02X %02X, want 00 00", in, gotLo, gotHi)
		}
	}
}

// crc16Bitwise shifts the register one bit at a time.
func crc16Bitwise(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestCRC16_TableMatchesBitwise(t *testing.T) {
	data := make([]byte, 0, 256)
	for i := 0; i < 256; i++ {
		data = append(data, byte(255-i))
		if got, want := CRC16(data), crc16Bitwise(data); got != want {
			t.Fatalf("table CRC %04X != bitwise CRC %04X at length %d", got, want, len(data))
		}
	}
}

func TestRTUPackager_UsesChecksum(t *testing.T) {
	data := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25}
	sealed := NewRTUPackager().AppendCRC(data)
	lo, hi := Checksum(data)
	if sealed[len(sealed)-2] != lo || sealed[len(sealed)-1] != hi {
		t.Errorf("AppendCRC trailer = % X, want %02X %02X", sealed[len(sealed)-2:], lo, hi)
	}
}
