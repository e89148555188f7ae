package registry_test

import (
	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/registry"
	"github.com/arya-analytics/relay/internal/table"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Codec", func() {
	var (
		sender   = invoker.NewDirectory("localhost:9090")
		receiver = invoker.NewDirectory("localhost:9091")
	)

	It("Should encode RPC tables to exactly their computed size", func() {
		codec := table.Codec[registry.RPCID]{Items: registry.RPCCodec{}, Resolver: receiver}
		ids := []registry.RPCID{{Type: "get-config", Path: "/"}, {Type: "ping", Path: "/nodes/node=1"}}
		t := table.New(sender.Register("rpc-broker"), ids...)
		b, err := codec.Encode(t)
		Expect(err).ToNot(HaveOccurred())
		expected := 4 + len(t.Invoker().Path()) + 4
		for _, id := range ids {
			expected += 4 + len(id.Type) + 4 + len(id.Path)
		}
		Expect(b).To(HaveLen(expected))
		decoded, err := codec.Decode(b)
		Expect(err).ToNot(HaveOccurred())
		Expect(decoded.Items()).To(ConsistOf(ids))
	})

	It("Should encode Action tables to exactly their computed size", func() {
		codec := table.Codec[registry.ActionID]{Items: registry.ActionCodec{}, Resolver: receiver}
		id := registry.ActionID{Type: "reset", Datastore: "operational", Path: "/nodes/node=1"}
		t := table.New(sender.Register("action-broker"), id)
		b, err := codec.Encode(t)
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(HaveLen(codec.Size(t)))
		Expect(b).To(HaveLen(4 + len(t.Invoker().Path()) + 4 + 4 + len(id.Type) + 4 + len(id.Datastore) + 4 + len(id.Path)))
		decoded, err := codec.Decode(b)
		Expect(err).ToNot(HaveOccurred())
		Expect(decoded.Contains(id)).To(BeTrue())
	})
})
