// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

import (
	"bytes"
	"math"
)

type Buffer struct {
	bytes.Buffer
}

func NewBuffer(initSize int) *Buffer {
	b := &Buffer{}

	b.Grow(initSize)

	return b
}

func (buf *Buffer) WriteUint32LE(value uint32) {
	buf.WriteByte(byte(value))
	buf.WriteByte(byte(value >> 8))
	buf.WriteByte(byte(value >> 16))
	buf.WriteByte(byte(value >> 24))
}

func (buf *Buffer) WriteUint16LE(value uint16) {
	buf.WriteByte(byte(value))
	buf.WriteByte(byte(value >> 8))
}

// ReadUint32LE consumes the next four bytes of the buffer.
func (buf *Buffer) ReadUint32LE() uint32 {
	b := buf.Next(4)

	if len(b) < 4 {
		logger.Error("could not read uint32 from given buffer")
		return math.MaxUint32
	}

	return uint32(b[0]) | (uint32(b[1]) << 8) | (uint32(b[2]) << 16) | (uint32(b[3]) << 24)
}

// ReadUint16BE consumes the next two bytes of the buffer.
func (buf *Buffer) ReadUint16BE() uint16 {
	b := buf.Next(2)

	if len(b) < 2 {
		logger.Error("could not read uint16 from given buffer")
		return math.MaxUint16
	}

	return uint16(b[1]) | (uint16(b[0]) << 8)
}
