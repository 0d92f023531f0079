package model

// TopologyRecord describes one fixed-wireless radio link from the inventory
// sheet. ClientIP and BaseIP are always syntactically valid addresses; rows
// that fail that check are dropped at load time and never become records.
type TopologyRecord struct {
	Client     string `json:"client" msgpack:"client"`
	BTS        string `json:"bts" msgpack:"bts"`
	POP        string `json:"pop" msgpack:"pop"`
	ClientIP   string `json:"client_ip" msgpack:"client_ip"`
	BaseIP     string `json:"base_ip" msgpack:"base_ip"`
	LoopbackIP string `json:"loopback_ip,omitempty" msgpack:"loopback_ip"` // empty = no loopback recorded
}

// ProbeStat is the parsed reachability result for a single address.
type ProbeStat struct {
	Sent     int
	Received int
	Loss     int      // percent, 0-100
	Avg      *float64 // average RTT in ms, nil when no replies
}

// Unreachable is the stat assumed for any address the prober reported
// nothing about.
func Unreachable() ProbeStat {
	return ProbeStat{Sent: 0, Received: 0, Loss: 100, Avg: nil}
}

// Up reports whether the address answered at least one echo.
func (s ProbeStat) Up() bool {
	return s.Loss < 100
}

// Probe status strings as rendered in API responses.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Root-cause levels.
const (
	CauseClient   = "client"
	CauseBase     = "base"
	CauseLoopback = "loopback"
	CauseUnknown  = "unknown"
)

// PingResult is one entry of the stage-1 parallel check.
type PingResult struct {
	Level        string   `json:"level"`
	IP           string   `json:"ip"`
	Status       string   `json:"status"`
	PacketLoss   string   `json:"packet_loss"`
	AvgLatencyMS *float64 `json:"avg_latency_ms"`
}

// BTSPopResult is one entry of the stage-2 sibling-sector scan.
type BTSPopResult struct {
	BaseIP string `json:"base_ip"`
	Status string `json:"status"`
}

// RouterInfo carries the optional SNMP identity of the POP router,
// collected when the loopback answers and SNMP checking is enabled.
type RouterInfo struct {
	SysName    string `json:"sys_name"`
	SysUptimeS uint32 `json:"sys_uptime_s"`
}

// LoopbackResult is the stage-3 loopback check.
type LoopbackResult struct {
	IP     string      `json:"ip"`
	Status string      `json:"status"`
	Router *RouterInfo `json:"router,omitempty"`
}

// DiagnosisResult is the verdict of one diagnosis run. Evidence accumulates
// across stages: the parallel check is always present, the sector scan once
// stage 2 ran, the loopback once stage 3 probed one.
type DiagnosisResult struct {
	ParallelCheck  []PingResult    `json:"parallel_check"`
	BTSPopScan     []BTSPopResult  `json:"bts_pop_scan"`
	Loopback       *LoopbackResult `json:"loopback"`
	FinalStatus    string          `json:"final_status"`
	RootCauseLevel string          `json:"root_cause_level"`
}

// HierarchyEntry is one client link in the grouped inventory view.
type HierarchyEntry struct {
	Client  string `json:"client"`
	IP      string `json:"ip"`
	Base    string `json:"base"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// Error types
type Error string

const (
	ErrNotFound    Error = "target not found"
	ErrThrottled   Error = "too many requests"
	ErrNoInventory Error = "inventory not loaded"
	ErrStoreClosed Error = "snapshot store is closed"
	ErrNoSnapshot  Error = "no inventory snapshot stored"
)

func (e Error) Error() string {
	return string(e)
}
