package process

import (
	"fmt"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/lamportsim/sim"
	"github.com/sarchlab/lamportsim/tracing"
	"github.com/sarchlab/lamportsim/transport"
	"github.com/sarchlab/lamportsim/workload"
)

var _ = Describe("Two processes over TCP", func() {
	var (
		transportA, transportB *transport.TCPTransport
		sinkA, sinkB           *tracing.MemorySink
		a, b                   *Process
		listenerDone           chan struct{}
	)

	BeforeEach(func() {
		transportA = transport.NewTCPTransport("127.0.0.1", 0).
			WithTimeout(time.Second)
		Expect(transportA.Listen()).To(Succeed())

		transportB = transport.NewTCPTransport("127.0.0.1", 0).
			WithTimeout(time.Second)
		Expect(transportB.Listen()).To(Succeed())

		sinkA = tracing.NewMemorySink()
		sinkB = tracing.NewMemorySink()

		a = MakeBuilder().
			WithPort(transportA.Port()).
			WithPeers([]int{transportB.Port()}).
			WithFreq(10 * sim.Hz).
			WithTransport(transportA).
			WithSink(sinkA).
			WithWorkload(workload.NewSeededGenerator(1, 10)).
			Build("A")

		b = MakeBuilder().
			WithPort(transportB.Port()).
			WithPeers([]int{transportA.Port()}).
			WithFreq(10 * sim.Hz).
			WithTransport(transportB).
			WithSink(sinkB).
			WithWorkload(workload.NewSeededGenerator(2, 10)).
			Build("B")

		listenerDone = make(chan struct{})
		go func() {
			a.Listen()
			close(listenerDone)
		}()
	})

	AfterEach(func() {
		Expect(a.Close()).To(Succeed())
		Expect(b.Close()).To(Succeed())
		Eventually(listenerDone, time.Second).Should(BeClosed())
	})

	It("should merge the clock of a received message", func() {
		b.Advance(0.05)
		msg := sim.MsgBuilder{}.WithTick(0).WithPort(b.Port()).Build()
		Expect(b.SendMessage(msg, []int{a.Port()})).To(Equal(tracing.KindSent))

		Eventually(a.QueueLen, time.Second).Should(Equal(1))

		a.Advance(0.06)
		Expect(a.Step()).To(Equal(tracing.KindReceived))

		Expect(a.LogicalClock()).To(Equal(uint64(0)))
		Expect(sinkA.Records()).To(Equal([]tracing.EventRecord{{
			Kind:        tracing.KindReceived,
			WallTime:    0.06,
			LogicalTime: 0,
			QueueLen:    0,
			FromPort:    tracing.Ports{b.Port()},
			ToPort:      tracing.Ports{a.Port()},
		}}))
		Expect(sinkB.Records()).To(Equal([]tracing.EventRecord{{
			Kind:        tracing.KindSent,
			WallTime:    0.05,
			LogicalTime: 0,
			QueueLen:    0,
			FromPort:    tracing.Ports{b.Port()},
			ToPort:      tracing.Ports{a.Port()},
		}}))
	})

	It("should carry the sender clock to the receiver", func() {
		b.Enqueue(sim.MsgBuilder{}.WithTick(12).WithPort(9999).Build())
		_, err := b.ReceiveMessage()
		Expect(err).NotTo(HaveOccurred())

		b.SendMessage(b.NewOutboundMsg(), []int{a.Port()})
		Eventually(a.QueueLen, time.Second).Should(Equal(1))

		_, err = a.ReceiveMessage()
		Expect(err).NotTo(HaveOccurred())
		Expect(a.LogicalClock()).To(Equal(uint64(12)))
	})

	It("should survive garbage on the listening port", func() {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", a.Port()))
		Expect(err).NotTo(HaveOccurred())
		_, err = conn.Write([]byte("not json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.Close()).To(Succeed())

		b.SendMessage(b.NewOutboundMsg(), []int{a.Port()})
		Eventually(a.QueueLen, time.Second).Should(Equal(1))
		Consistently(a.QueueLen, 100*time.Millisecond).Should(Equal(1))
	})

	It("should stop the listener when closed", func() {
		Expect(a.Close()).To(Succeed())
		Eventually(listenerDone, time.Second).Should(BeClosed())
	})
})
