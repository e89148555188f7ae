package bucket_test

import (
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/version"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/protobuf/encoding/protowire"
)

var _ = Describe("Message", func() {
	It("Should survive a binary round trip", func() {
		msg := bucket.Message{
			Variant: bucket.VariantAck,
			From:    "localhost:1",
			Digests: bucket.Digests{"localhost:2": 3},
			Buckets: map[address.Address]bucket.Encoded{
				"localhost:1": {Version: 7, Data: []byte("routes")},
			},
		}
		b, err := msg.MarshalBinary()
		Expect(err).ToNot(HaveOccurred())
		var decoded bucket.Message
		Expect(decoded.UnmarshalBinary(b)).To(Succeed())
		Expect(decoded).To(Equal(msg))
	})
	It("Should leave empty sections nil", func() {
		b, err := bucket.Message{Variant: bucket.VariantAck2, From: "localhost:1"}.MarshalBinary()
		Expect(err).ToNot(HaveOccurred())
		var decoded bucket.Message
		Expect(decoded.UnmarshalBinary(b)).To(Succeed())
		Expect(decoded.Empty()).To(BeTrue())
		Expect(decoded.Buckets).To(BeNil())
	})
	It("Should return an error on a truncated message", func() {
		b, err := bucket.Message{Variant: bucket.VariantSync, From: "localhost:1", Digests: bucket.Digests{"localhost:2": 1}}.MarshalBinary()
		Expect(err).ToNot(HaveOccurred())
		var decoded bucket.Message
		Expect(decoded.UnmarshalBinary(b[:len(b)-2])).ToNot(Succeed())
	})
	It("Should encode equal messages to equal bytes", func() {
		msg := bucket.Message{
			Variant: bucket.VariantSync,
			From:    "localhost:1",
			Digests: bucket.Digests{"localhost:3": 1, "localhost:1": 4, "localhost:2": 2},
		}
		a, err := msg.MarshalBinary()
		Expect(err).ToNot(HaveOccurred())
		for i := 0; i < 10; i++ {
			b, err := msg.MarshalBinary()
			Expect(err).ToNot(HaveOccurred())
			Expect(b).To(Equal(a))
		}
	})
	It("Should decode a message written field by field and skip unknown fields", func() {
		var digest []byte
		digest = protowire.AppendTag(digest, 1, protowire.BytesType)
		digest = protowire.AppendString(digest, "localhost:2")
		digest = protowire.AppendTag(digest, 2, protowire.VarintType)
		digest = protowire.AppendVarint(digest, 9)

		var encoded []byte
		encoded = protowire.AppendTag(encoded, 1, protowire.VarintType)
		encoded = protowire.AppendVarint(encoded, 4)
		encoded = protowire.AppendTag(encoded, 2, protowire.BytesType)
		encoded = protowire.AppendBytes(encoded, []byte("routes"))
		var bkt []byte
		bkt = protowire.AppendTag(bkt, 1, protowire.BytesType)
		bkt = protowire.AppendString(bkt, "localhost:2")
		bkt = protowire.AppendTag(bkt, 2, protowire.BytesType)
		bkt = protowire.AppendBytes(bkt, encoded)

		var b []byte
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(bucket.VariantAck))
		b = protowire.AppendTag(b, 15, protowire.BytesType)
		b = protowire.AppendString(b, "added later")
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, "localhost:2")
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, digest)
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, bkt)

		var decoded bucket.Message
		Expect(decoded.UnmarshalBinary(b)).To(Succeed())
		Expect(decoded).To(Equal(bucket.Message{
			Variant: bucket.VariantAck,
			From:    "localhost:2",
			Digests: bucket.Digests{"localhost:2": version.Counter(9)},
			Buckets: map[address.Address]bucket.Encoded{
				"localhost:2": {Version: 4, Data: []byte("routes")},
			},
		}))
	})
	It("Should return an error on a malformed tag", func() {
		var decoded bucket.Message
		Expect(decoded.UnmarshalBinary([]byte{0xff})).ToNot(Succeed())
	})
})
