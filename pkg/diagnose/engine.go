// Package diagnose implements the three-stage root-cause cascade: a parallel
// client/base/gateway check, a sibling-sector scan, and a final loopback
// probe. The first satisfied exit condition terminates the run; evidence
// from earlier stages is always carried into the verdict.
package diagnose

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wingedpig/rfdiag/pkg/inventory"
	"github.com/wingedpig/rfdiag/pkg/model"
	"github.com/wingedpig/rfdiag/pkg/probe"
	"github.com/wingedpig/rfdiag/pkg/util/addrs"
)

// Verdict strings, one per terminal state of the cascade.
const (
	VerdictLinkUp          = "LINK UP – Client Reachable"
	VerdictCPEDown         = "FAULT – Client Radio / CPE Down"
	VerdictSectorFailure   = "FAULT – Isolated Base Sector Failure"
	VerdictBackhaulIssue   = "CRITICAL – Router Alive, Backhaul / Fiber / Power Issue"
	VerdictRouterDown      = "CRITICAL – POP / BTS Router DOWN"
	VerdictLoopbackMissing = "ERROR – Loopback IP Missing"
)

// DefaultStageTimeout bounds each probe round so a wedged probe mechanism
// cannot hang a diagnosis indefinitely.
const DefaultStageTimeout = 30 * time.Second

// RouterChecker supplies optional SNMP identity evidence for a loopback that
// answered. A nil checker disables it.
type RouterChecker interface {
	Check(ctx context.Context, host string) (*model.RouterInfo, error)
}

// Engine drives diagnoses against the current inventory.
type Engine struct {
	inv          *inventory.Handle
	prober       probe.Prober
	router       RouterChecker
	stageTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRouterChecker attaches the optional SNMP identity check.
func WithRouterChecker(rc RouterChecker) Option {
	return func(e *Engine) { e.router = rc }
}

// WithStageTimeout overrides the per-stage probe deadline.
func WithStageTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stageTimeout = d
		}
	}
}

// New creates an Engine reading inventory through inv and probing with p.
func New(inv *inventory.Handle, p probe.Prober, opts ...Option) *Engine {
	e := &Engine{
		inv:          inv,
		prober:       p,
		stageTimeout: DefaultStageTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diagnose resolves query against the inventory and runs the cascade.
// Returns model.ErrNoInventory before the first successful inventory load
// and model.ErrNotFound when the query matches nothing.
func (e *Engine) Diagnose(ctx context.Context, query string) (*model.DiagnosisResult, error) {
	ix := e.inv.Current()
	if ix == nil {
		return nil, model.ErrNoInventory
	}

	rec, ok := ix.Resolve(query)
	if !ok {
		return nil, model.ErrNotFound
	}

	// Stage 1: client, base and the inferred gateway in one batch. The
	// gateway result is reported but never gates a transition.
	gateway := addrs.Gateway(rec.BaseIP)
	stats := e.probeRound(ctx, []string{rec.ClientIP, rec.BaseIP, gateway})

	clientStat := probe.StatFor(stats, rec.ClientIP)
	baseStat := probe.StatFor(stats, rec.BaseIP)
	gatewayStat := probe.StatFor(stats, gateway)

	result := &model.DiagnosisResult{
		ParallelCheck: []model.PingResult{
			pingResult("client", rec.ClientIP, clientStat),
			pingResult("base", rec.BaseIP, baseStat),
			pingResult("gateway", gateway, gatewayStat),
		},
		BTSPopScan: []model.BTSPopResult{},
	}

	if clientStat.Up() {
		return accept(result, VerdictLinkUp, model.CauseClient), nil
	}
	if baseStat.Up() {
		return accept(result, VerdictCPEDown, model.CauseClient), nil
	}

	// Stage 2: every base serving the same BTS or POP, one batch. Any
	// answering sibling isolates the fault to this sector.
	siblings := ix.Siblings(rec)
	sectorStats := e.probeRound(ctx, siblings)

	anyBaseUp := false
	for _, base := range siblings {
		stat := probe.StatFor(sectorStats, base)
		if stat.Up() {
			anyBaseUp = true
		}
		result.BTSPopScan = append(result.BTSPopScan, model.BTSPopResult{
			BaseIP: base,
			Status: statusOf(stat),
		})
	}

	if anyBaseUp {
		return accept(result, VerdictSectorFailure, model.CauseBase), nil
	}

	// Stage 3: the loopback is the final authority separating "router alive,
	// backhaul broken" from "router itself down".
	if !addrs.Valid(rec.LoopbackIP) {
		log.Printf("WARN: Loopback IP invalid or missing for %s", rec.Client)
		return accept(result, VerdictLoopbackMissing, model.CauseUnknown), nil
	}

	loopStat := probe.StatFor(e.probeRound(ctx, []string{rec.LoopbackIP}), rec.LoopbackIP)
	result.Loopback = &model.LoopbackResult{
		IP:     rec.LoopbackIP,
		Status: statusOf(loopStat),
	}

	if loopStat.Up() {
		e.attachRouterInfo(ctx, result.Loopback)
		return accept(result, VerdictBackhaulIssue, model.CauseLoopback), nil
	}
	return accept(result, VerdictRouterDown, model.CauseLoopback), nil
}

func (e *Engine) probeRound(ctx context.Context, targets []string) map[string]model.ProbeStat {
	rctx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	return e.prober.Probe(rctx, targets)
}

func (e *Engine) attachRouterInfo(ctx context.Context, loopback *model.LoopbackResult) {
	if e.router == nil {
		return
	}
	info, err := e.router.Check(ctx, loopback.IP)
	if err != nil {
		log.Printf("WARN: Router identity check %s: %v", loopback.IP, err)
		return
	}
	loopback.Router = info
}

func pingResult(level, ip string, stat model.ProbeStat) model.PingResult {
	return model.PingResult{
		Level:        level,
		IP:           ip,
		Status:       statusOf(stat),
		PacketLoss:   fmt.Sprintf("%d%%", stat.Loss),
		AvgLatencyMS: stat.Avg,
	}
}

func statusOf(stat model.ProbeStat) string {
	if stat.Up() {
		return model.StatusUp
	}
	return model.StatusDown
}

func accept(result *model.DiagnosisResult, verdict, cause string) *model.DiagnosisResult {
	result.FinalStatus = verdict
	result.RootCauseLevel = cause
	return result
}
