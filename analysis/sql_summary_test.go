package analysis

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/lamportsim/datarecording"
	"github.com/sarchlab/lamportsim/tracing"
)

func writeSQLiteTrace(dir, process string, records []tracing.EventRecord) {
	procDir := filepath.Join(dir, process+"_log")
	Expect(os.MkdirAll(procDir, 0o755)).To(Succeed())

	recorder := datarecording.NewSQLiteWriter(filepath.Join(procDir, "events"))
	recorder.Init()

	sink := tracing.NewSQLSink(recorder, process)
	for _, r := range records {
		Expect(sink.Write(r)).To(Succeed())
	}

	Expect(sink.Close()).To(Succeed())
}

var _ = Describe("SummarizeExperimentSQLite", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should summarize the SQLite traces", func() {
		writeSQLiteTrace(dir, "c1", sampleTrace())
		writeSQLiteTrace(dir, "c2", sampleTrace()[:1])

		summaries, err := SummarizeExperimentSQLite(context.Background(), dir)

		Expect(err).NotTo(HaveOccurred())
		Expect(summaries).To(HaveLen(2))
		Expect(summaries[0].Process).To(Equal("c1"))
		Expect(summaries[0].Summary).To(Equal(Summarize(sampleTrace())))
		Expect(summaries[1].Process).To(Equal("c2"))
		Expect(summaries[1].Total).To(Equal(1))
	})

	It("should fail without SQLite traces", func() {
		writeTrace(dir, "c1", sampleTrace())

		_, err := SummarizeExperimentSQLite(context.Background(), dir)

		Expect(err).To(MatchError(ErrNoTraces))
	})
})
