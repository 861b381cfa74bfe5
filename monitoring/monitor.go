// Package monitoring serves the state of running processes over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/lamportsim/monitoring/web"
	"github.com/sarchlab/lamportsim/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"
)

// Process is the view of a simulated process that the monitor reports.
type Process interface {
	Name() string
	Port() int
	LogicalClock() uint64
	QueueLen() int
	IsAvailable() bool
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulated processes.
type Monitor struct {
	lock       sync.Mutex
	timeTeller sim.TimeTeller
	processes  []Process
	portNumber int
	logger     *zap.Logger
	server     *http.Server
	url        string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		timeTeller: sim.WallClock{},
		logger:     zap.NewNop(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port",
			zap.Int("port", portNumber))

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithTimeTeller sets the clock reported by the monitor.
func (m *Monitor) WithTimeTeller(timeTeller sim.TimeTeller) *Monitor {
	m.timeTeller = timeTeller
	return m
}

// RegisterProcess registers a process to be monitored.
func (m *Monitor) RegisterProcess(p Process) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.processes = append(m.processes, p)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_processes", m.listProcesses)
	r.HandleFunc("/api/process/{name}", m.listProcessDetails)
	r.HandleFunc("/api/queue/{name}", m.queueStatus)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("start monitor: %w", err)
	}

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.logger.Info("monitoring simulation", zap.String("url", m.url))

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", zap.Error(err))
		}
	}()

	return m.url, nil
}

// OpenInBrowser opens the page of a started monitor.
func (m *Monitor) OpenInBrowser() error {
	if m.url == "" {
		return errors.New("monitor is not started")
	}

	return browser.OpenURL(m.url)
}

// StopServer stops a started monitor.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, struct {
		Now float64 `json:"now"`
	}{float64(m.timeTeller.Now())})
}

func (m *Monitor) listProcesses(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	names := make([]string, 0, len(m.processes))
	for _, p := range m.processes {
		names = append(names, p.Name())
	}
	m.lock.Unlock()

	writeJSON(w, names)
}

func (m *Monitor) listProcessDetails(w http.ResponseWriter, r *http.Request) {
	p := m.findProcessOr404(w, mux.Vars(r)["name"])
	if p == nil {
		return
	}

	status := statusOf(p)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&status)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

// processStatus is a copy of the observable state of a process. Handlers
// serialize the copy, never the live process.
type processStatus struct {
	Process      string `json:"process"`
	Port         int    `json:"port"`
	QueueLen     int    `json:"queue_len"`
	LogicalClock uint64 `json:"logical_clock"`
	Available    bool   `json:"available"`
}

func statusOf(p Process) processStatus {
	return processStatus{
		Process:      p.Name(),
		Port:         p.Port(),
		QueueLen:     p.QueueLen(),
		LogicalClock: p.LogicalClock(),
		Available:    p.IsAvailable(),
	}
}

func (m *Monitor) queueStatus(w http.ResponseWriter, r *http.Request) {
	p := m.findProcessOr404(w, mux.Vars(r)["name"])
	if p == nil {
		return
	}

	writeJSON(w, statusOf(p))
}

func (m *Monitor) findProcessOr404(
	w http.ResponseWriter,
	name string,
) Process {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, p := range m.processes {
		if p.Name() == name {
			return p
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Process not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
