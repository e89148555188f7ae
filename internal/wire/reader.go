package wire

import (
	"io"

	"github.com/cockroachdb/errors"
)

// MaxLength caps the length prefix the Reader will accept, so a corrupted
// prefix can't trigger an arbitrarily large allocation.
const MaxLength = 64 << 20

// ErrTooLarge is returned when a length prefix exceeds MaxLength.
var ErrTooLarge = errors.New("[wire] - length prefix exceeds maximum")

// Reader reads values written by a Writer.
type Reader struct {
	reader io.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{reader: r} }

func (r *Reader) read(n int) ([]byte, error) {
	bs := make([]byte, n)
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	bs, err := r.read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	bs, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(bs), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	bs, err := r.read(8)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint64(bs), nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length > MaxLength {
		return nil, errors.Wrapf(ErrTooLarge, "length %d", length)
	}
	return r.read(int(length))
}

func (r *Reader) ReadString() (string, error) {
	bs, err := r.ReadBytes()
	return string(bs), err
}
