package registry_test

import (
	"context"
	"time"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/registry"
	tmock "github.com/arya-analytics/relay/internal/transport/mock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type member interface {
	Start(ctx context.Context) error
	Stop() error
	MemberJoined(ctx context.Context, addr address.Address) error
}

func joinAll(ctx context.Context, addrs []address.Address, members []member) {
	for _, m := range members {
		Expect(m.Start(ctx)).To(Succeed())
		for _, addr := range addrs {
			Expect(m.MemberJoined(ctx, addr)).To(Succeed())
		}
	}
}

var _ = Describe("Registry", func() {
	var (
		net    *tmock.Network[bucket.Message, bucket.Message]
		ctx    context.Context
		cancel context.CancelFunc
	)
	BeforeEach(func() {
		net = tmock.NewNetwork[bucket.Message, bucket.Message]()
		ctx, cancel = context.WithCancel(context.Background())
	})
	AfterEach(func() { cancel() })

	newRPC := func() (*registry.RPC, *rpcRegistrar, invoker.Ref) {
		t := net.Route("")
		dir := invoker.NewDirectory(t.Address)
		inv := dir.Register("rpc-broker")
		rec := &rpcRegistrar{}
		r, err := registry.NewRPC(inv, dir, rec, bucket.Config{
			Address:   t.Address,
			Transport: t,
			Interval:  20 * time.Millisecond,
		})
		Expect(err).ToNot(HaveOccurred())
		return r, rec, inv
	}

	newAction := func() (*registry.Action, *actionRegistrar, invoker.Ref) {
		t := net.Route("")
		dir := invoker.NewDirectory(t.Address)
		inv := dir.Register("action-broker")
		rec := &actionRegistrar{}
		r, err := registry.NewAction(inv, dir, rec, bucket.Config{
			Address:   t.Address,
			Transport: t,
			Interval:  20 * time.Millisecond,
		})
		Expect(err).ToNot(HaveOccurred())
		return r, rec, inv
	}

	var (
		getConfig = registry.RPCID{Type: "get-config", Path: "/"}
		putConfig = registry.RPCID{Type: "put-config", Path: "/"}
	)

	Describe("RPC", func() {
		It("Should require a registrar", func() {
			t := net.Route("")
			dir := invoker.NewDirectory(t.Address)
			_, err := registry.NewRPC(dir.Register(""), dir, nil, bucket.Config{Address: t.Address, Transport: t})
			Expect(err).To(HaveOccurred())
		})

		It("Should reject updates that change nothing", func() {
			r, _, _ := newRPC()
			Expect(r.AddOrUpdateRoutes(ctx)).To(MatchError(registry.ErrInvalidArgument))
			Expect(r.RemoveRoutes(ctx)).To(MatchError(registry.ErrInvalidArgument))
			Expect(r.UpdateRoutes(ctx, nil, nil)).To(MatchError(registry.ErrInvalidArgument))
		})

		It("Should return ErrStopped after the registry stops", func() {
			r, _, _ := newRPC()
			Expect(r.Start(ctx)).To(Succeed())
			Expect(r.Stop()).To(Succeed())
			Expect(r.AddOrUpdateRoutes(ctx, getConfig)).To(MatchError(bucket.ErrStopped))
		})

		It("Should advertise, shrink and withdraw routes", func() {
			x, _, xInv := newRPC()
			y, yRec, yInv := newRPC()
			xAddr, yAddr := xInv.Address(), yInv.Address()
			joinAll(ctx, []address.Address{xAddr, yAddr}, []member{x, y})
			defer func() { _ = x.Stop(); _ = y.Stop() }()

			By("Adding two routes")
			Expect(x.AddOrUpdateRoutes(ctx, getConfig, putConfig)).To(Succeed())
			Eventually(func() []registry.RPCID {
				ep := yRec.Last()[xAddr]
				if ep == nil {
					return nil
				}
				Expect(invoker.Equal(ep.Invoker, xInv)).To(BeTrue())
				return ep.Items
			}).Should(ConsistOf(getConfig, putConfig))

			By("Removing one route")
			Expect(x.RemoveRoutes(ctx, getConfig)).To(Succeed())
			Eventually(func() []registry.RPCID {
				if ep := yRec.Last()[xAddr]; ep != nil {
					return ep.Items
				}
				return nil
			}).Should(ConsistOf(putConfig))

			By("Removing the last route")
			Expect(x.RemoveRoutes(ctx, putConfig)).To(Succeed())
			Eventually(yRec.Last).Should(HaveKeyWithValue(xAddr, BeNil()))

			By("Removing the member")
			Expect(x.AddOrUpdateRoutes(ctx, getConfig)).To(Succeed())
			Eventually(func() *registry.Endpoint[registry.RPCID] { return yRec.Last()[xAddr] }).ShouldNot(BeNil())
			Expect(y.MemberLeft(ctx, xAddr)).To(Succeed())
			Eventually(yRec.Last).Should(Equal(registry.Endpoints[registry.RPCID]{xAddr: nil}))
			n := len(yRec.All())
			Consistently(func() int { return len(yRec.All()) }, 100*time.Millisecond).Should(Equal(n))
		})

		It("Should report every member in the view on each notification", func() {
			x, _, xInv := newRPC()
			y, yRec, yInv := newRPC()
			z, _, zInv := newRPC()
			addrs := []address.Address{xInv.Address(), yInv.Address(), zInv.Address()}
			joinAll(ctx, addrs, []member{x, y, z})
			defer func() { _ = x.Stop(); _ = y.Stop(); _ = z.Stop() }()
			Expect(x.AddOrUpdateRoutes(ctx, getConfig)).To(Succeed())
			Expect(z.AddOrUpdateRoutes(ctx, putConfig)).To(Succeed())
			Eventually(func() bool {
				last := yRec.Last()
				return last[addrs[0]] != nil && last[addrs[2]] != nil
			}).Should(BeTrue())
			last := yRec.Last()
			Expect(last).To(HaveLen(2))
			Expect(last).ToNot(HaveKey(addrs[1]))
			Expect(last[addrs[0]].Items).To(ConsistOf(getConfig))
			Expect(last[addrs[2]].Items).To(ConsistOf(putConfig))
			view, err := y.Admin().PeerView(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(view.Addresses()).To(ConsistOf(addrs))
		})

		It("Should apply combined updates as remove then add", func() {
			x, _, _ := newRPC()
			Expect(x.Start(ctx)).To(Succeed())
			defer func() { _ = x.Stop() }()
			Expect(x.AddOrUpdateRoutes(ctx, getConfig)).To(Succeed())
			Expect(x.UpdateRoutes(ctx, []registry.RPCID{putConfig, getConfig}, []registry.RPCID{getConfig})).To(Succeed())
			Eventually(func() []registry.RPCID {
				b, err := x.Admin().LocalBucket(ctx)
				Expect(err).ToNot(HaveOccurred())
				return b.Data.Items()
			}).Should(ConsistOf(getConfig, putConfig))
		})
	})

	Describe("Action", func() {
		var (
			invokeRoute = registry.ActionID{Type: "invoke", Datastore: "operational", Path: "/nodes/node=1"}
			resetRoute  = registry.ActionID{Type: "reset", Datastore: "operational", Path: "/nodes/node=1"}
		)

		It("Should reject updates that change nothing", func() {
			a, _, _ := newAction()
			Expect(a.UpdateActions(ctx, nil, nil)).To(MatchError(registry.ErrInvalidArgument))
		})

		It("Should advertise actions to peers", func() {
			x, _, xInv := newAction()
			y, yRec, yInv := newAction()
			xAddr := xInv.Address()
			joinAll(ctx, []address.Address{xAddr, yInv.Address()}, []member{x, y})
			defer func() { _ = x.Stop(); _ = y.Stop() }()

			Expect(x.UpdateActions(ctx, []registry.ActionID{invokeRoute, resetRoute}, nil)).To(Succeed())
			Expect(x.UpdateActions(ctx, []registry.ActionID{resetRoute}, []registry.ActionID{invokeRoute, resetRoute})).To(Succeed())
			Eventually(func() []registry.ActionID {
				if ep := yRec.Last()[xAddr]; ep != nil {
					return ep.Items
				}
				return nil
			}).Should(ConsistOf(resetRoute))
		})
	})
})
