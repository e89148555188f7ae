// Package wire implements the big-endian, length-prefixed binary encoding used
// for everything relay sends between peers.
package wire

import (
	"encoding/binary"
	"io"
)

// ByteOrder is the byte order of every multi-byte integer on the wire.
var ByteOrder = binary.BigEndian

// Writer writes fixed-width integers and length-prefixed byte strings to an
// underlying io.Writer.
type Writer struct {
	writer io.Writer
	n      int
}

func NewWriter(w io.Writer) *Writer { return &Writer{writer: w} }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.n }

func (w *Writer) write(b []byte) error {
	n, err := w.writer.Write(b)
	w.n += n
	return err
}

func (w *Writer) WriteUint8(value uint8) error { return w.write([]byte{value}) }

func (w *Writer) WriteUint32(value uint32) error {
	bf := make([]byte, 4)
	ByteOrder.PutUint32(bf, value)
	return w.write(bf)
}

func (w *Writer) WriteUint64(value uint64) error {
	bf := make([]byte, 8)
	ByteOrder.PutUint64(bf, value)
	return w.write(bf)
}

// WriteBytes writes a uint32 length followed by value.
func (w *Writer) WriteBytes(value []byte) error {
	if err := w.WriteUint32(uint32(len(value))); err != nil {
		return err
	}
	return w.write(value)
}

// WriteString writes a uint32 length followed by the bytes of value.
func (w *Writer) WriteString(value string) error { return w.WriteBytes([]byte(value)) }

// StringSize returns the number of bytes WriteString uses to encode s.
func StringSize(s string) int { return 4 + len(s) }
