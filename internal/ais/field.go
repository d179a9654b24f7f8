// Package ais interprets bit fields of a decoded AIS payload.
package ais

import "fmt"

// PositionReport is the message type this receiver expects in the leading
// field of every decoded payload.
const PositionReport = 1

// TypeBits is the width of the message type field.
const TypeBits = 6

// ExtractField returns the integer held in bits [start, end) of payload,
// most significant bit first, interpreted as two's complement over
// end-start bits. Out-of-range fields are an error, never a silent
// truncation.
func ExtractField(payload []byte, start, end int) (int64, error) {
	if start < 0 || start >= end || end > len(payload) {
		return 0, fmt.Errorf("ais: field [%d,%d) out of range for %d bit payload", start, end, len(payload))
	}
	width := end - start
	if width > 63 {
		return 0, fmt.Errorf("ais: field width %d exceeds 63 bits", width)
	}

	var value int64
	for _, b := range payload[start:end] {
		value <<= 1
		if b != 0 {
			value |= 1
		}
	}
	if value&(1<<(width-1)) != 0 {
		value -= 1 << width
	}
	return value, nil
}

// MessageType reads the leading message type field of a payload.
func MessageType(payload []byte) (int64, error) {
	return ExtractField(payload, 0, TypeBits)
}
