package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventRecord", func() {
	It("should use the Events tags of the trace format", func() {
		Expect(KindReceived.String()).To(Equal("Events.RECEIVED_MSG"))
		Expect(KindSent.String()).To(Equal("Events.SENT_MSG"))
		Expect(KindInternal.String()).To(Equal("Events.INTERNAL_EVENT"))
		Expect(KindBroadcast.String()).To(Equal("Events.BROADCAST_MSG"))
	})

	It("should render port lists", func() {
		Expect(Ports(nil).String()).To(Equal("NULL"))
		Expect(Ports{5001}.String()).To(Equal("5001"))
		Expect(Ports{5001, 5002}.String()).To(Equal("5001:5002"))
	})

	It("should parse port lists", func() {
		Expect(ParsePorts("NULL")).To(BeEmpty())
		Expect(ParsePorts("5001")).To(Equal(Ports{5001}))
		Expect(ParsePorts("5001:5002")).To(Equal(Ports{5001, 5002}))

		_, err := ParsePorts("50a1")
		Expect(err).To(HaveOccurred())
	})

	It("should format a received row", func() {
		rec := EventRecord{
			Kind:        KindReceived,
			WallTime:    1712345678.125,
			LogicalTime: 7,
			QueueLen:    0,
			FromPort:    Ports{5002},
			ToPort:      Ports{5001},
		}

		Expect(rec.Row()).To(Equal([]string{
			"Events.RECEIVED_MSG", "1712345678.125", "7", "0", "5002", "5001",
		}))
	})

	It("should format an internal row", func() {
		rec := EventRecord{
			Kind:        KindInternal,
			WallTime:    10,
			LogicalTime: 3,
			QueueLen:    2,
		}

		Expect(rec.Row()).To(Equal([]string{
			"Events.INTERNAL_EVENT", "10", "3", "2", "NULL", "NULL",
		}))
	})

	It("should reject rows with unknown tags or wrong widths", func() {
		_, err := ParseRow([]string{"Events.NOPE", "1", "1", "0", "NULL", "NULL"})
		Expect(err).To(HaveOccurred())

		_, err = ParseRow([]string{"Events.SENT_MSG", "1"})
		Expect(err).To(HaveOccurred())
	})
})
