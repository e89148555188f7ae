package main

import (
	"github.com/arya-analytics/relay"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Routes", func() {
	Describe("parseRPCs", func() {
		It("Should split the type from the path", func() {
			ids, err := parseRPCs([]string{"get:/interfaces", "ping:urn:x:y"})
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(Equal([]relay.RPCID{
				{Type: "get", Path: "/interfaces"},
				{Type: "ping", Path: "urn:x:y"},
			}))
		})
		It("Should reject a route without a path", func() {
			_, err := parseRPCs([]string{"get"})
			Expect(err).To(HaveOccurred())
		})
	})
	Describe("parseActions", func() {
		It("Should split the type, datastore and path", func() {
			ids, err := parseActions([]string{"reset:operational:/nodes"})
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(ConsistOf(relay.ActionID{Type: "reset", Datastore: "operational", Path: "/nodes"}))
		})
		It("Should reject an action without a datastore", func() {
			_, err := parseActions([]string{"reset::/nodes"})
			Expect(err).To(HaveOccurred())
		})
	})
})
