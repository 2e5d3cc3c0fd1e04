// Package monitoring serves an assembled topology over HTTP so that it can be
// browsed while the assembler process is alive.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
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

	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/hooking"
	"github.com/sarchlab/mesitopo/monitoring/web"
	"github.com/sarchlab/mesitopo/topology"
)

// Monitor turns a topology into a web server. It is also a hook that counts
// the assembly events, so that it can be registered on the topology builder
// before the topology exists.
type Monitor struct {
	portNumber int

	lock     sync.RWMutex
	topology *topology.Topology
	progress map[string]int
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		progress: make(map[string]int),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// Func counts the assembly events. It keeps the topology once it is
// assembled.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.progress[ctx.Pos.Name]++

	if ctx.Pos == hooking.HookPosTopologyAssembled {
		if t, ok := ctx.Item.(*topology.Topology); ok {
			m.topology = t
		}
	}
}

// RegisterTopology sets the topology to serve.
func (m *Monitor) RegisterTopology(t *topology.Topology) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.topology = t
}

// Handler returns the routes of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/topology", m.summary)
	r.HandleFunc("/api/list_nodes", m.listNodes)
	r.HandleFunc("/api/node/{name}", m.listNodeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/channels", m.listChannels)
	r.HandleFunc("/api/groups", m.listGroups)
	r.HandleFunc("/api/owner/{address}", m.findOwner)
	r.HandleFunc("/api/progress", m.listProgress)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(web.Handler())

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring topology with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Handler())
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) topologyOr503(w http.ResponseWriter) *topology.Topology {
	m.lock.RLock()
	t := m.topology
	m.lock.RUnlock()

	if t == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, err := w.Write([]byte("Topology not assembled"))
		dieOnErr(err)
	}

	return t
}

type summaryRsp struct {
	BuildID         string         `json:"build_id"`
	Name            string         `json:"name"`
	Kind            string         `json:"kind"`
	MeshRows        int            `json:"mesh_rows"`
	FullSystem      bool           `json:"full_system"`
	VirtualNetworks int            `json:"virtual_networks"`
	StreamFloat     bool           `json:"stream_float"`
	Nodes           map[string]int `json:"nodes"`
	Channels        int            `json:"channels"`
	Groups          int            `json:"groups"`
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	t := m.topologyOr503(w)
	if t == nil {
		return
	}

	rsp := summaryRsp{
		BuildID:         t.BuildID(),
		Name:            t.Name(),
		Kind:            string(t.Kind()),
		MeshRows:        t.MeshRows(),
		FullSystem:      t.FullSystem(),
		VirtualNetworks: t.Budget().Total(),
		StreamFloat:     t.Flags().Float,
		Nodes:           make(map[string]int),
		Channels:        len(t.Channels()),
		Groups:          len(t.Groups()),
	}

	for _, role := range hierarchy.Roles {
		if n := t.NumNodes(role); n > 0 {
			rsp.Nodes[role.String()] = n
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	t := m.topologyOr503(w)
	if t == nil {
		return
	}

	names := []string{}
	for _, n := range t.AllNodes() {
		names = append(names, n.Name)
	}

	writeJSON(w, names)
}

func (m *Monitor) listNodeDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	node := m.findNodeOr404(w, name)
	if node == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(node)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	NodeName  string `json:"node_name,omitempty"`
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

	node := m.findNodeOr404(w, req.NodeName)
	if node == nil {
		return
	}

	elem, err := m.walkFields(node, req.FieldName)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	writeJSON(w, elem.Interface())
}

type channelRsp struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	VirtualNetwork int    `json:"virtual_network"`
	Ordered        bool   `json:"ordered"`
	From           string `json:"from"`
	To             string `json:"to"`
}

func (m *Monitor) listChannels(w http.ResponseWriter, r *http.Request) {
	t := m.topologyOr503(w)
	if t == nil {
		return
	}

	sortMethod, limit, offset, err := m.channelsParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	channels := m.filterChannels(t.Channels(), r.URL.Query().Get("node"))
	channels = m.sortAndSelectChannels(channels, sortMethod, limit, offset)

	rsp := make([]channelRsp, 0, len(channels))
	for _, c := range channels {
		rsp = append(rsp, channelRsp{
			ID:             c.ID,
			Name:           c.Name,
			Kind:           c.Kind.String(),
			VirtualNetwork: c.VirtualNetwork,
			Ordered:        c.Ordered,
			From:           c.From.String(),
			To:             c.To.String(),
		})
	}

	writeJSON(w, rsp)
}

func (*Monitor) channelsParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "id"
	}

	if sortMethod != "id" && sortMethod != "vnet" && sortMethod != "name" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are "+
				"`id`, `vnet` and `name`", sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return n, nil
}

func (*Monitor) filterChannels(
	channels []topology.Channel,
	node string,
) []topology.Channel {
	if node == "" {
		return channels
	}

	filtered := []topology.Channel{}
	for _, c := range channels {
		if c.From.NodeName == node || c.To.NodeName == node {
			filtered = append(filtered, c)
		}
	}

	return filtered
}

func (*Monitor) sortAndSelectChannels(
	channels []topology.Channel,
	sortMethod string,
	limit, offset int,
) []topology.Channel {
	sorted := make([]topology.Channel, len(channels))
	copy(sorted, channels)

	switch sortMethod {
	case "id":
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].ID < sorted[j].ID
		})
	case "vnet":
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].VirtualNetwork != sorted[j].VirtualNetwork {
				return sorted[i].VirtualNetwork < sorted[j].VirtualNetwork
			}

			return sorted[i].ID < sorted[j].ID
		})
	case "name":
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Name < sorted[j].Name
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(sorted) {
		offset = len(sorted)
	}

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sorted[offset:end]
}

type groupRsp struct {
	Index       int    `json:"index"`
	Cores       []int  `json:"cores"`
	GroupSize   int    `json:"group_size"`
	IssuePolicy string `json:"issue_policy"`
}

func (m *Monitor) listGroups(w http.ResponseWriter, _ *http.Request) {
	t := m.topologyOr503(w)
	if t == nil {
		return
	}

	rsp := []groupRsp{}
	for _, g := range t.Groups() {
		rsp = append(rsp, groupRsp{
			Index:       g.Index,
			Cores:       g.Cores,
			GroupSize:   g.GroupSize,
			IssuePolicy: string(g.IssuePolicy),
		})
	}

	writeJSON(w, rsp)
}

type ownerRsp struct {
	Address   string `json:"address"`
	Cluster   int    `json:"cluster"`
	Bank      string `json:"bank"`
	Directory string `json:"directory"`
}

func (m *Monitor) findOwner(w http.ResponseWriter, r *http.Request) {
	t := m.topologyOr503(w)
	if t == nil {
		return
	}

	addr, err := strconv.ParseUint(mux.Vars(r)["address"], 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	cluster, err := intParam(r, "cluster")
	if err != nil || cluster >= t.AddressMap().NumClusters {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: invalid cluster %q",
			r.URL.Query().Get("cluster"))
		return
	}

	writeJSON(w, ownerRsp{
		Address:   fmt.Sprintf("0x%x", addr),
		Cluster:   cluster,
		Bank:      t.BankOwner(addr, cluster),
		Directory: t.DirectoryOwner(addr),
	})
}

func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	writeJSON(w, m.progress)
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("cannot walk into field %q", e.field)
}

func (m *Monitor) walkFields(
	root any,
	fields string,
) (reflect.Value, error) {
	elem := reflect.ValueOf(root)

	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			if elem.IsNil() {
				return elem, fieldFormatError{fieldNames[0]}
			}

			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fieldFormatError{fieldNames[0]}
			}

			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{fieldNames[0]}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{fieldNames[0]}
		}
	}

	if elem.Kind() == reflect.Ptr && !elem.IsNil() {
		elem = elem.Elem()
	}

	return elem, nil
}

func (m *Monitor) findNodeOr404(
	w http.ResponseWriter,
	name string,
) *hierarchy.Node {
	t := m.topologyOr503(w)
	if t == nil {
		return nil
	}

	for _, n := range t.AllNodes() {
		if n.Name == name {
			return &n
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Node not found"))
	dieOnErr(err)

	return nil
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
	dieOnErr(err)

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
