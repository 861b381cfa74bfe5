package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/lamportsim/sim"
)

type fakeProcess struct {
	name      string
	port      int
	clock     uint64
	queueLen  int
	available bool
}

func (p *fakeProcess) Name() string         { return p.name }
func (p *fakeProcess) Port() int            { return p.port }
func (p *fakeProcess) LogicalClock() uint64 { return p.clock }
func (p *fakeProcess) QueueLen() int        { return p.queueLen }
func (p *fakeProcess) IsAvailable() bool    { return p.available }

type fixedTime sim.WallTimeInSec

func (t fixedTime) Now() sim.WallTimeInSec { return sim.WallTimeInSec(t) }

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		router *mux.Router
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	BeforeEach(func() {
		m = NewMonitor().WithTimeTeller(fixedTime(12.5))
		m.RegisterProcess(&fakeProcess{
			name: "c1", port: 5001, clock: 7, queueLen: 3, available: true,
		})
		m.RegisterProcess(&fakeProcess{name: "c2", port: 5002})
		router = m.Router()
	})

	It("should use a random port for reserved ports", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should report the time", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"now": 12.5}`))
	})

	It("should list processes", func() {
		rec := get("/api/list_processes")

		Expect(rec.Body.String()).To(MatchJSON(`["c1", "c2"]`))
	})

	It("should report the queue of a process", func() {
		rec := get("/api/queue/c1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{
			"process": "c1",
			"port": 5001,
			"queue_len": 3,
			"logical_clock": 7,
			"available": true
		}`))
	})

	It("should answer 404 for an unknown process", func() {
		Expect(get("/api/queue/c9").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/process/c9").Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize a process", func() {
		rec := get("/api/process/c2")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should report progress bars", func() {
		bar := m.CreateProgressBar("c1", 100)
		bar.SetFinished(40)
		bar.IncrementFinished(2)

		var bars []map[string]any
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())

		Expect(bars).To(HaveLen(1))
		Expect(bars[0]).To(HaveKeyWithValue("name", "c1"))
		Expect(bars[0]).To(HaveKeyWithValue("total", 100.0))
		Expect(bars[0]).To(HaveKeyWithValue("finished", 42.0))
	})

	It("should cap the progress at the total", func() {
		bar := m.CreateProgressBar("c1", 10)
		bar.SetFinished(20)
		Expect(bar.Finished).To(Equal(uint64(10)))

		bar.IncrementFinished(1)
		Expect(bar.Finished).To(Equal(uint64(10)))
	})

	It("should remove completed progress bars", func() {
		bar := m.CreateProgressBar("c1", 100)
		m.CompleteProgressBar(bar)

		Expect(get("/api/progress").Body.String()).To(MatchJSON(`[]`))
	})

	It("should report resources", func() {
		var rsp map[string]any
		Expect(json.Unmarshal(get("/api/resource").Body.Bytes(), &rsp)).
			To(Succeed())

		Expect(rsp).To(HaveKey("cpu_percent"))
		Expect(rsp["memory_size"]).To(BeNumerically(">", 0))
	})

	It("should serve the page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should refuse to open a browser before starting", func() {
		Expect(m.OpenInBrowser()).NotTo(Succeed())
	})
})
