package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/lamportsim/datarecording"
)

var _ = Describe("ReadSQL", func() {
	var (
		recorder *datarecording.SQLWriter
		reader   datarecording.DataReader
		c1, c2   *SQLSink
	)

	BeforeEach(func() {
		recorder = datarecording.NewSQLiteWriter(
			filepath.Join(GinkgoT().TempDir(), "events"))
		recorder.Init()

		c1 = NewSQLSink(recorder, "c1")
		c2 = NewSQLSink(datarecording.NewWithDB(recorder.DB), "c2")
		reader = datarecording.NewReaderWithDB(recorder.DB)
	})

	AfterEach(func() {
		Expect(c1.Close()).To(Succeed())
		Expect(c2.Close()).To(Succeed())
	})

	It("should read back the records of one process in order", func() {
		written := []EventRecord{
			{Kind: KindInternal, WallTime: 1.5, LogicalTime: 1},
			{
				Kind:        KindBroadcast,
				WallTime:    2.5,
				LogicalTime: 2,
				QueueLen:    3,
				FromPort:    Ports{5001},
				ToPort:      Ports{5002, 5003},
			},
			{
				Kind:        KindReceived,
				WallTime:    3.5,
				LogicalTime: 9,
				FromPort:    Ports{5002},
				ToPort:      Ports{5001},
			},
		}
		for _, r := range written {
			Expect(c1.Write(r)).To(Succeed())
		}
		Expect(c2.Write(EventRecord{Kind: KindSent, LogicalTime: 4,
			FromPort: Ports{5002}, ToPort: Ports{5001}})).To(Succeed())
		Expect(c1.Flush()).To(Succeed())
		Expect(c2.Flush()).To(Succeed())

		records, err := ReadSQL(context.Background(), reader, "c1")

		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal(written))
	})

	It("should list the processes", func() {
		Expect(c2.Write(EventRecord{Kind: KindInternal})).To(Succeed())
		Expect(c1.Write(EventRecord{Kind: KindInternal})).To(Succeed())
		Expect(c1.Flush()).To(Succeed())
		Expect(c2.Flush()).To(Succeed())

		processes, err := SQLProcesses(context.Background(), reader)

		Expect(err).NotTo(HaveOccurred())
		Expect(processes).To(Equal([]string{"c1", "c2"}))
	})

	It("should return nothing for an unknown process", func() {
		records, err := ReadSQL(context.Background(), reader, "c9")

		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})
})
