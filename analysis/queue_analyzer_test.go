package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/lamportsim/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("QueueAnalyzer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		logger     *MockPerfLogger
		queue      sim.Buffer
	)

	at := func(t sim.WallTimeInSec) {
		timeTeller.EXPECT().Now().Return(t).Times(1)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		logger = NewMockPerfLogger(mockCtrl)
		queue = sim.NewBuffer("c1.InboundQueue", 0)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("with a period", func() {
		var analyzer *QueueAnalyzer

		BeforeEach(func() {
			at(0.25)
			analyzer = MakeQueueAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(timeTeller).
				WithPeriod(1).
				WithBuffer(queue).
				Build()
		})

		It("should report the average length of each finished period", func() {
			at(0.5)
			queue.Push(1)

			logger.EXPECT().AddDataEntry(PerfEntry{
				Start: 0,
				End:   1,
				Where: "c1.InboundQueue",
				What:  "QueueLen",
				Value: 0.5 / 0.75,
				Unit:  "msg",
			})
			at(1.5)
			queue.Push(2)

			logger.EXPECT().AddDataEntry(PerfEntry{
				Start: 1,
				End:   1.75,
				Where: "c1.InboundQueue",
				What:  "QueueLen",
				Value: 1 / 0.75,
				Unit:  "msg",
			})
			at(1.75)
			analyzer.Report()
		})

		It("should report skipped periods together", func() {
			at(0.5)
			queue.Push(1)

			logger.EXPECT().AddDataEntry(PerfEntry{
				Start: 0,
				End:   1,
				Where: "c1.InboundQueue",
				What:  "QueueLen",
				Value: 0.5 / 0.75,
				Unit:  "msg",
			})
			logger.EXPECT().AddDataEntry(PerfEntry{
				Start: 1,
				End:   2,
				Where: "c1.InboundQueue",
				What:  "QueueLen",
				Value: 1,
				Unit:  "msg",
			})
			at(2.5)
			queue.Pop()
		})
	})

	Context("without a period", func() {
		var analyzer *QueueAnalyzer

		BeforeEach(func() {
			at(1)
			analyzer = MakeQueueAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(timeTeller).
				WithBuffer(queue).
				Build()
		})

		It("should report once for the whole run", func() {
			at(2)
			queue.Push(1)
			at(4)
			queue.Pop()

			logger.EXPECT().AddDataEntry(PerfEntry{
				Start: 1,
				End:   5,
				Where: "c1.InboundQueue",
				What:  "QueueLen",
				Value: 0.5,
				Unit:  "msg",
			})
			at(5)
			analyzer.Report()
		})

		It("should use the length carried by the hook", func() {
			at(2)
			analyzer.Func(sim.HookCtx{
				Domain: queue,
				Pos:    sim.HookPosBufPush,
				Detail: 3,
			})

			logger.EXPECT().AddDataEntry(PerfEntry{
				Start: 1,
				End:   4,
				Where: "c1.InboundQueue",
				What:  "QueueLen",
				Value: 2,
				Unit:  "msg",
			})
			at(4)
			analyzer.Report()
		})

		It("should ignore changes after the report", func() {
			logger.EXPECT().AddDataEntry(gomock.Any())
			at(3)
			analyzer.Report()

			queue.Push(1)
			analyzer.Report()
		})

		It("should not report an empty run", func() {
			at(1)
			analyzer.Report()
		})
	})

	It("should panic without a logger", func() {
		Expect(func() {
			MakeQueueAnalyzerBuilder().WithBuffer(queue).Build()
		}).To(Panic())
	})

	It("should panic without a queue", func() {
		Expect(func() {
			MakeQueueAnalyzerBuilder().WithPerfLogger(logger).Build()
		}).To(Panic())
	})
})
