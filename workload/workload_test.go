package workload

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Decide", func() {
	DescribeTable("two peers",
		func(r int, expected Action) {
			Expect(Decide(r, 2)).To(Equal(expected))
		},
		Entry("first peer", 1, Action{Kind: Unicast, Targets: []int{0}}),
		Entry("second peer", 2, Action{Kind: Unicast, Targets: []int{1}}),
		Entry("broadcast", 3, Action{Kind: Broadcast, Targets: []int{0, 1}}),
		Entry("internal", 4, Action{Kind: Internal}),
		Entry("internal at the top", 11, Action{Kind: Internal}),
	)

	It("should generalize to N peers", func() {
		Expect(Decide(4, 4)).To(Equal(Action{Kind: Unicast, Targets: []int{3}}))
		Expect(Decide(5, 4)).To(Equal(Action{
			Kind: Broadcast, Targets: []int{0, 1, 2, 3},
		}))
		Expect(Decide(6, 4)).To(Equal(Action{Kind: Internal}))
	})

	It("should only do internal events without peers", func() {
		Expect(Decide(1, 0)).To(Equal(Action{Kind: Internal}))
	})

	It("should panic on draws below 1", func() {
		Expect(func() { Decide(0, 2) }).To(Panic())
	})
})

var _ = Describe("Generator", func() {
	var (
		mockCtrl *gomock.Controller
		rand     *MockRandSource
		g        *Generator
		peers    []int
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		rand = NewMockRandSource(mockCtrl)
		g = NewGenerator(rand, 10)
		peers = []int{5001, 5002}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should draw from [1, upperBound+1]", func() {
		rand.EXPECT().Intn(11).Return(0)
		Expect(g.Draw()).To(Equal(1))

		rand.EXPECT().Intn(11).Return(10)
		Expect(g.Draw()).To(Equal(11))
	})

	It("should resolve unicast targets to ports", func() {
		rand.EXPECT().Intn(11).Return(1)
		Expect(g.Next(peers)).To(Equal(Action{
			Kind: Unicast, Targets: []int{5002},
		}))
	})

	It("should resolve broadcast targets to ports", func() {
		rand.EXPECT().Intn(11).Return(2)
		Expect(g.Next(peers)).To(Equal(Action{
			Kind: Broadcast, Targets: []int{5001, 5002},
		}))
	})

	It("should produce internal events", func() {
		rand.EXPECT().Intn(11).Return(5)
		Expect(g.Next(peers)).To(Equal(Action{Kind: Internal, Targets: []int{}}))
	})

	It("should reject a non-positive upper bound", func() {
		Expect(func() { NewGenerator(rand, 0) }).To(Panic())
	})

	It("should keep the unicast:broadcast:internal partition", func() {
		seeded := NewSeededGenerator(42, 10)
		counts := map[Kind]int{}
		n := 110000

		for i := 0; i < n; i++ {
			counts[seeded.Next(peers).Kind]++
		}

		Expect(float64(counts[Unicast]) / float64(n)).
			To(BeNumerically("~", 2.0/11.0, 0.01))
		Expect(float64(counts[Broadcast]) / float64(n)).
			To(BeNumerically("~", 1.0/11.0, 0.01))
		Expect(float64(counts[Internal]) / float64(n)).
			To(BeNumerically("~", 8.0/11.0, 0.01))
	})
})
