// Endpoint lifecycle coverage: Invalid -> Constructed/Initialised -> Used ->
// HalfClosed -> Released, expressed against the observable fields (Valid,
// Used, SentEOF/RecvEOF) rather than a literal state enum, since the
// Endpoint type tracks lifecycle as a handful of monotonic booleans.
// Grounded on the teacher's transport/lifecycle_test.go Describe/Context
// structure, adapted from stream half-close semantics to comm's endpoint.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/loomward/commcore/comm"
	"github.com/loomward/commcore/comm/driver"
)

var _ = Describe("Endpoint lifecycle", func() {

	Context("Invalid", func() {
		It("marks an endpoint invalid when the requested kind is unknown", func() {
			ep, err := comm.Open("", "whatever", driver.Send, "no-such-kind")
			Expect(err).To(HaveOccurred())
			Expect(ep.Valid).To(BeFalse())
		})
	})

	Context("Constructed and Initialised", func() {
		It("is Valid and unused immediately after Open", func() {
			ep, err := comm.Open("", "t-lc-init", driver.Send, "ipc")
			Expect(err).NotTo(HaveOccurred())
			defer ep.Release()

			Expect(ep.Valid).To(BeTrue())
			Expect(ep.Used).To(BeFalse())
			Expect(ep.Serializer).NotTo(BeNil())
			Expect(ep.Handle).NotTo(BeNil())
		})
	})

	Context("Used", func() {
		It("flips Used to true, monotonically, after the first successful Send", func() {
			a, err := comm.Open("", "t-lc-used", driver.Send, "ipc")
			Expect(err).NotTo(HaveOccurred())
			defer a.Release()
			b, err := comm.Open("", "t-lc-used", driver.Recv, "ipc")
			Expect(err).NotTo(HaveOccurred())
			defer b.Release()

			Expect(a.Used).To(BeFalse())
			_, err = a.Send([]byte("x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Used).To(BeTrue())

			_, err = a.Send([]byte("y"))
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Used).To(BeTrue())
		})
	})

	Context("HalfClosed", func() {
		It("sets SentEOF on the sender without touching the receiver's RecvEOF until it drains the frame", func() {
			a, err := comm.Open("", "t-lc-half", driver.Send, "ipc")
			Expect(err).NotTo(HaveOccurred())
			defer a.Release()
			b, err := comm.Open("", "t-lc-half", driver.Recv, "ipc")
			Expect(err).NotTo(HaveOccurred())
			defer b.Release()

			_, err = a.Send(comm.EOFSentinel)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.SentEOF).To(BeTrue())
			Expect(b.RecvEOF).To(BeFalse())

			_, _, err = b.Recv(make([]byte, 8), false)
			Expect(err).To(MatchError(comm.ErrEOF))
			Expect(b.RecvEOF).To(BeTrue())
		})

		It("rejects a second EOF send as already-half-closed", func() {
			a, err := comm.Open("", "t-lc-half-twice", driver.Send, "ipc")
			Expect(err).NotTo(HaveOccurred())
			defer a.Release()

			_, err = a.Send(comm.EOFSentinel)
			Expect(err).NotTo(HaveOccurred())
			_, err = a.Send(comm.EOFSentinel)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Released", func() {
		It("turns Valid false and rejects further operations", func() {
			ep, err := comm.Open("", "t-lc-release", driver.Send, "ipc")
			Expect(err).NotTo(HaveOccurred())

			Expect(ep.Release()).To(Succeed())
			Expect(ep.Valid).To(BeFalse())

			_, err = ep.Send([]byte("late"))
			Expect(err).To(HaveOccurred())
		})

		It("is idempotent", func() {
			ep, err := comm.Open("", "t-lc-release-twice", driver.Send, "ipc")
			Expect(err).NotTo(HaveOccurred())

			Expect(ep.Release()).To(Succeed())
			Expect(ep.Release()).To(Succeed())
		})
	})
})
