// Package monitoring turns a running testbench into a web server, so that the
// simulation can be watched and paused from a browser or with curl.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/rtltb/monitoring/web"
	"github.com/sarchlab/rtltb/scoreboard"
	"github.com/sarchlab/rtltb/sim"
)

// A Component is anything with a name whose state can be inspected.
type Component interface {
	Name() string
}

// A ScoreboardStats is a scoreboard whose counters can be read while the
// simulation runs.
type ScoreboardStats interface {
	Component
	Stats() scoreboard.Stats
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine      sim.Engine
	components  []Component
	scoreboards []ScoreboardStats
	portNumber  int
	url         string

	pauseLock sync.Mutex
	paused    bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterComponent registers a component whose fields can be inspected.
func (m *Monitor) RegisterComponent(c Component) {
	m.components = append(m.components, c)
}

// RegisterScoreboard registers a scoreboard whose counters are reported. The
// scoreboard can also be inspected as a component.
func (m *Monitor) RegisterScoreboard(sb ScoreboardStats) {
	m.scoreboards = append(m.scoreboards, sb)
	m.RegisterComponent(sb)
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

// Router returns the handler that serves the web page and the API.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/scoreboards", m.listScoreboards)
	r.HandleFunc("/api/scoreboard/{name}", m.scoreboardStats)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server. It listens on the port set
// by WithPortNumber, or on a random port.
func (m *Monitor) StartServer() {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", m.url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()
}

// URL returns the address of the server, once started.
func (m *Monitor) URL() string {
	return m.url
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	if !m.paused {
		m.engine.Pause()
		m.paused = true
	}

	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	if m.paused {
		m.engine.Continue()
		m.paused = false
	}

	_, err := w.Write(nil)
	dieOnErr(err)
}

// holdEngine keeps the engine between two events while fn reads simulation
// state.
func (m *Monitor) holdEngine(fn func()) {
	m.pauseLock.Lock()
	defer m.pauseLock.Unlock()

	if !m.paused {
		m.engine.Pause()
		defer m.engine.Continue()
	}

	fn()
}

type nowRsp struct {
	Now    uint64 `json:"now"`
	NowStr string `json:"now_str"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()

	writeJSON(w, nowRsp{Now: uint64(now), NowStr: now.String()})
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	var err error

	m.holdEngine(func() {
		err = serializer.Serialize(w)
	})

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.holdEngine(func() {
		err = serializer.Serialize(w)
	})

	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

type scoreboardRsp struct {
	Name   string           `json:"name"`
	Passed bool             `json:"passed"`
	Stats  scoreboard.Stats `json:"stats"`
}

func newScoreboardRsp(sb ScoreboardStats) scoreboardRsp {
	stats := sb.Stats()

	return scoreboardRsp{
		Name:   sb.Name(),
		Passed: stats.Check(sb.Name()) == nil,
		Stats:  stats,
	}
}

func (m *Monitor) listScoreboards(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]scoreboardRsp, 0, len(m.scoreboards))
	for _, sb := range m.scoreboards {
		rsp = append(rsp, newScoreboardRsp(sb))
	}

	sort.Slice(rsp, func(i, j int) bool { return rsp[i].Name < rsp[j].Name })

	writeJSON(w, rsp)
}

func (m *Monitor) scoreboardStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, sb := range m.scoreboards {
		if sb.Name() == name {
			writeJSON(w, newScoreboardRsp(sb))
			return
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Scoreboard not found"))
	dieOnErr(err)
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
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

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
