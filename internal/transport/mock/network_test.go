package mock_test

import (
	"context"

	"github.com/arya-analytics/relay/internal/transport"
	"github.com/arya-analytics/relay/internal/transport/mock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Network", func() {
	var (
		net *mock.Network[int, int]
		ctx = context.Background()
	)
	BeforeEach(func() { net = mock.NewNetwork[int, int]() })

	It("Should deliver a request to the handler at the target address", func() {
		t1, t2 := net.Route(""), net.Route("")
		Expect(t1.Address).ToNot(Equal(t2.Address))
		t2.Handle(func(_ context.Context, req int) (int, error) { return req * 2, nil })
		res, err := t1.Send(ctx, t2.Address, 21)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(42))
		Expect(net.Sent()).To(Equal(1))
	})

	It("Should return ErrUnreachable for unknown addresses", func() {
		_, err := net.Route("").Send(ctx, "localhost:1", 1)
		Expect(err).To(MatchError(transport.ErrUnreachable))
	})

	It("Should return ErrUnreachable while partitioned", func() {
		t1, t2 := net.Route(""), net.Route("")
		t2.Handle(func(_ context.Context, req int) (int, error) { return req, nil })
		net.Partition(t2.Address)
		_, err := t1.Send(ctx, t2.Address, 1)
		Expect(err).To(MatchError(transport.ErrUnreachable))
		net.Heal(t2.Address)
		_, err = t1.Send(ctx, t2.Address, 1)
		Expect(err).ToNot(HaveOccurred())
	})

	It("Should return ErrUnreachable after removal", func() {
		t1, t2 := net.Route(""), net.Route("")
		t2.Handle(func(_ context.Context, req int) (int, error) { return req, nil })
		net.Remove(t2.Address)
		_, err := t1.Send(ctx, t2.Address, 1)
		Expect(err).To(MatchError(transport.ErrUnreachable))
	})
})
