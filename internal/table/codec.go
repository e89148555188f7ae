package table

import (
	"bytes"

	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/wire"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

// ErrTrailingBytes is returned when a payload holds bytes past the end of the
// encoded table.
var ErrTrailingBytes = errors.New("[table] - trailing bytes after encoded table")

// ItemCodec encodes and decodes individual table items.
type ItemCodec[I any] interface {
	EncodeItem(w *wire.Writer, item I) error
	DecodeItem(r *wire.Reader) (I, error)
	// ItemSize returns the exact number of bytes EncodeItem writes for item.
	ItemSize(item I) int
}

// Codec encodes tables into the following layout:
//
//	invoker path (uint32 length + bytes)
//	item count   (uint32)
//	items        (ItemCodec encoding, one after another)
//
// Items are written in the lexical order of their encoded form, so equal tables
// served by the same invoker always encode to identical bytes.
type Codec[I comparable] struct {
	Items    ItemCodec[I]
	Resolver invoker.Resolver
}

// Size returns the exact number of bytes Encode produces for t.
func (c Codec[I]) Size(t Table[I]) int {
	size := wire.StringSize(invoker.Encode(t.invoker)) + 4
	for item := range t.items {
		size += c.Items.ItemSize(item)
	}
	return size
}

// Encode encodes t.
func (c Codec[I]) Encode(t Table[I]) ([]byte, error) {
	encoded := make([][]byte, 0, len(t.items))
	for item := range t.items {
		buf := bytes.NewBuffer(make([]byte, 0, c.Items.ItemSize(item)))
		if err := c.Items.EncodeItem(wire.NewWriter(buf), item); err != nil {
			return nil, errors.Wrap(err, "[table] - failed to encode item")
		}
		encoded = append(encoded, buf.Bytes())
	}
	slices.SortFunc(encoded, func(a, b []byte) bool { return bytes.Compare(a, b) < 0 })

	buf := bytes.NewBuffer(make([]byte, 0, c.Size(t)))
	w := wire.NewWriter(buf)
	if err := w.WriteString(invoker.Encode(t.invoker)); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(uint32(len(encoded))); err != nil {
		return nil, err
	}
	for _, b := range encoded {
		if _, err := buf.Write(b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Decode decodes a table, resolving its invoker path with the codec's
// Resolver. If the path can't be resolved, the returned error satisfies
// invoker.IsResolutionError.
func (c Codec[I]) Decode(b []byte) (Table[I], error) {
	rd := bytes.NewReader(b)
	r := wire.NewReader(rd)
	path, err := r.ReadString()
	if err != nil {
		return Table[I]{}, errors.Wrap(err, "[table] - failed to read invoker path")
	}
	count, err := r.ReadUint32()
	if err != nil {
		return Table[I]{}, errors.Wrap(err, "[table] - failed to read item count")
	}
	// Bound the initial allocation by what the payload could possibly hold.
	items := make([]I, 0, minInt(int(count), rd.Len()))
	for i := uint32(0); i < count; i++ {
		item, err := c.Items.DecodeItem(r)
		if err != nil {
			return Table[I]{}, errors.Wrapf(err, "[table] - failed to decode item %d", i)
		}
		items = append(items, item)
	}
	if rd.Len() != 0 {
		return Table[I]{}, ErrTrailingBytes
	}
	inv, err := c.Resolver.Resolve(path)
	if err != nil {
		return Table[I]{}, err
	}
	return New(inv, items...), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
