package bucket

import (
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/version"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/encoding/protowire"
)

// Variant identifies the step of a gossip exchange a Message belongs to.
//
// An exchange runs in three steps. The initiator sends a Sync carrying the
// version of every bucket it holds. The peer answers with an Ack carrying the
// buckets it holds newer versions of, along with the versions of the buckets it
// wants from the initiator. The initiator finishes with an Ack2 carrying the
// requested buckets. A local change is pushed to peers as a lone Ack2.
type Variant uint8

const (
	VariantSync Variant = iota + 1
	VariantAck
	VariantAck2
)

func (v Variant) String() string {
	switch v {
	case VariantSync:
		return "sync"
	case VariantAck:
		return "ack"
	case VariantAck2:
		return "ack2"
	}
	return "invalid"
}

// Digests maps members to the version of their bucket.
type Digests map[address.Address]version.Counter

// Encoded is a bucket whose data is still in its wire form.
type Encoded struct {
	Version version.Counter
	Data    []byte
}

// Message is exchanged between the Stores of two members.
type Message struct {
	Variant Variant
	From    address.Address
	Digests Digests
	Buckets map[address.Address]Encoded
}

// Empty returns true if the message carries nothing to act on.
func (m Message) Empty() bool { return len(m.Digests) == 0 && len(m.Buckets) == 0 }

// ErrInvalidVariant is returned when a message arrives with a variant the
// receiver can't act on.
var ErrInvalidVariant = errors.New("[bucket] - invalid message variant")

// Field numbers of the gossip envelope. Messages are encoded in the protobuf
// wire format of:
//
//	message BucketGossip {
//	  uint32 variant = 1;
//	  string from = 2;
//	  map<string, uint64> digests = 3;
//	  map<string, Encoded> buckets = 4;
//	}
//
//	message Encoded {
//	  uint64 version = 1;
//	  bytes data = 2;
//	}
const (
	fieldVariant protowire.Number = 1
	fieldFrom    protowire.Number = 2
	fieldDigests protowire.Number = 3
	fieldBuckets protowire.Number = 4

	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2

	fieldEncodedVersion protowire.Number = 1
	fieldEncodedData    protowire.Number = 2
)

// MarshalBinary encodes the message as a BucketGossip. Map entries are written
// in address order, so equal messages encode to equal bytes.
func (m Message) MarshalBinary() ([]byte, error) {
	var b []byte
	if m.Variant != 0 {
		b = protowire.AppendTag(b, fieldVariant, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Variant))
	}
	if m.From != "" {
		b = protowire.AppendTag(b, fieldFrom, protowire.BytesType)
		b = protowire.AppendString(b, m.From.String())
	}
	for _, addr := range sortedKeys(m.Digests) {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, addr.String())
		entry = protowire.AppendTag(entry, fieldEntryValue, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(m.Digests[addr]))
		b = protowire.AppendTag(b, fieldDigests, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	for _, addr := range sortedKeys(m.Buckets) {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, addr.String())
		entry = protowire.AppendTag(entry, fieldEntryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, m.Buckets[addr].marshal())
		b = protowire.AppendTag(b, fieldBuckets, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

func (e Encoded) marshal() []byte {
	var b []byte
	if e.Version != 0 {
		b = protowire.AppendTag(b, fieldEncodedVersion, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Version))
	}
	if len(e.Data) > 0 {
		b = protowire.AppendTag(b, fieldEncodedData, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Data)
	}
	return b
}

// UnmarshalBinary decodes a BucketGossip. Unknown fields are skipped.
func (m *Message) UnmarshalBinary(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldVariant && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Variant = Variant(v)
			return n, nil
		case num == fieldFrom && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.From = address.Address(v)
			return n, nil
		case num == fieldDigests && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			addr, raw, err := unmarshalEntry(entry, protowire.VarintType)
			if err != nil {
				return 0, errors.Wrap(err, "[bucket] - failed to decode digest")
			}
			v, vn := protowire.ConsumeVarint(raw)
			if len(raw) > 0 && vn < 0 {
				return 0, errors.Wrap(protowire.ParseError(vn), "[bucket] - failed to decode digest version")
			}
			if m.Digests == nil {
				m.Digests = make(Digests)
			}
			m.Digests[addr] = version.Counter(v)
			return n, nil
		case num == fieldBuckets && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			addr, raw, err := unmarshalEntry(entry, protowire.BytesType)
			if err != nil {
				return 0, errors.Wrap(err, "[bucket] - failed to decode bucket")
			}
			var enc Encoded
			if err := enc.unmarshal(raw); err != nil {
				return 0, errors.Wrapf(err, "[bucket] - failed to decode bucket of %s", addr)
			}
			if m.Buckets == nil {
				m.Buckets = make(map[address.Address]Encoded)
			}
			m.Buckets[addr] = enc
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// unmarshalEntry decodes a map entry, returning its key and the undecoded
// value. The value is nil when the entry leaves it at its default.
func unmarshalEntry(b []byte, valueType protowire.Type) (addr address.Address, value []byte, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldEntryKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			addr = address.Address(v)
			return n, nil
		case num == fieldEntryValue && typ == valueType:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return n, nil
			}
			if typ == protowire.BytesType {
				value, _ = protowire.ConsumeBytes(b)
			} else {
				value = b[:n]
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return addr, value, err
}

func (e *Encoded) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldEncodedVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			e.Version = version.Counter(v)
			return n, nil
		case num == fieldEncodedData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				e.Data = append([]byte(nil), v...)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// walkFields calls fn with the remainder of b after each field tag. fn returns
// the length of the field's value, or a negative protowire error code.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "[bucket] - malformed message")
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "[bucket] - malformed field %d", num)
		}
		b = b[n:]
	}
	return nil
}

func sortedKeys[V any](m map[address.Address]V) []address.Address {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
