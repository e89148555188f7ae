package wire_test

import (
	"bytes"
	"io"

	"github.com/arya-analytics/relay/internal/wire"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Wire", func() {
	It("Should read back what the writer wrote", func() {
		buf := new(bytes.Buffer)
		w := wire.NewWriter(buf)
		Expect(w.WriteUint8(7)).To(Succeed())
		Expect(w.WriteUint32(42)).To(Succeed())
		Expect(w.WriteUint64(1 << 40)).To(Succeed())
		Expect(w.WriteString("rpc")).To(Succeed())
		Expect(w.Len()).To(Equal(1 + 4 + 8 + wire.StringSize("rpc")))
		Expect(buf.Len()).To(Equal(w.Len()))

		r := wire.NewReader(buf)
		u8, err := r.ReadUint8()
		Expect(err).ToNot(HaveOccurred())
		Expect(u8).To(Equal(uint8(7)))
		u32, err := r.ReadUint32()
		Expect(err).ToNot(HaveOccurred())
		Expect(u32).To(Equal(uint32(42)))
		u64, err := r.ReadUint64()
		Expect(err).ToNot(HaveOccurred())
		Expect(u64).To(Equal(uint64(1 << 40)))
		s, err := r.ReadString()
		Expect(err).ToNot(HaveOccurred())
		Expect(s).To(Equal("rpc"))
	})
	It("Should encode lengths big-endian", func() {
		buf := new(bytes.Buffer)
		Expect(wire.NewWriter(buf).WriteString("ab")).To(Succeed())
		Expect(buf.Bytes()).To(Equal([]byte{0, 0, 0, 2, 'a', 'b'}))
	})
	It("Should return an error on a truncated payload", func() {
		r := wire.NewReader(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}))
		_, err := r.ReadString()
		Expect(err).To(MatchError(io.ErrUnexpectedEOF))
	})
	It("Should reject oversized length prefixes", func() {
		r := wire.NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
		_, err := r.ReadBytes()
		Expect(err).To(MatchError(wire.ErrTooLarge))
	})
})
