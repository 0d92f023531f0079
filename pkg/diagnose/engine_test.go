package diagnose

import (
	"context"
	"errors"
	"testing"

	"github.com/wingedpig/rfdiag/pkg/inventory"
	"github.com/wingedpig/rfdiag/pkg/model"
)

func up(avg float64) model.ProbeStat {
	return model.ProbeStat{Sent: 3, Received: 3, Loss: 0, Avg: &avg}
}

func down() model.ProbeStat {
	return model.Unreachable()
}

// fakeProber answers from a fixed per-address table; addresses not in the
// table are left out of the result, as a real prober does.
type fakeProber struct {
	stats   map[string]model.ProbeStat
	batches [][]string
}

func (p *fakeProber) Probe(ctx context.Context, targets []string) map[string]model.ProbeStat {
	p.batches = append(p.batches, targets)
	out := make(map[string]model.ProbeStat)
	for _, t := range targets {
		if s, ok := p.stats[t]; ok {
			out[t] = s
		}
	}
	return out
}

// Test topology: client Acme on BTS-1/POP-A with a sibling sector BTS-2 on
// the same POP, plus an unrelated site.
func testHandle(t *testing.T, loopback string) *inventory.Handle {
	t.Helper()

	recs := []model.TopologyRecord{
		{Client: "Acme", BTS: "BTS-1", POP: "POP-A", ClientIP: "10.0.0.10", BaseIP: "10.0.0.1", LoopbackIP: loopback},
		{Client: "Beta", BTS: "BTS-2", POP: "POP-A", ClientIP: "10.0.1.10", BaseIP: "10.0.1.1"},
		{Client: "Gamma", BTS: "BTS-9", POP: "POP-Z", ClientIP: "10.9.0.10", BaseIP: "10.9.0.1"},
	}

	h := &inventory.Handle{}
	h.Publish(inventory.FromRecords(recs))
	return h
}

func TestScenarioAClientReachable(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{
		"10.0.0.10": up(2.3),
		"10.0.0.1":  up(1.1),
		"10.0.0.0":  up(1.5),
	}}
	e := New(testHandle(t, "172.16.0.1"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	if res.FinalStatus != VerdictLinkUp {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictLinkUp)
	}
	if res.RootCauseLevel != model.CauseClient {
		t.Errorf("root_cause_level = %q, want client", res.RootCauseLevel)
	}
	if res.BTSPopScan == nil || len(res.BTSPopScan) != 0 {
		t.Errorf("bts_pop_scan = %v, want empty non-nil", res.BTSPopScan)
	}
	if res.Loopback != nil {
		t.Errorf("loopback = %+v, want nil", res.Loopback)
	}
	if len(prober.batches) != 1 {
		t.Errorf("probe rounds = %d, want 1", len(prober.batches))
	}

	// Triple order and content
	levels := []string{"client", "base", "gateway"}
	for i, want := range levels {
		if res.ParallelCheck[i].Level != want {
			t.Errorf("parallel_check[%d].level = %q, want %q", i, res.ParallelCheck[i].Level, want)
		}
	}
	if res.ParallelCheck[2].IP != "10.0.0.0" {
		t.Errorf("gateway ip = %q, want 10.0.0.0", res.ParallelCheck[2].IP)
	}
	if res.ParallelCheck[0].PacketLoss != "0%" {
		t.Errorf("client packet_loss = %q, want 0%%", res.ParallelCheck[0].PacketLoss)
	}
}

func TestScenarioBCPEDown(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{
		"10.0.0.1": up(1.1),
		// client and gateway absent: unreachable
	}}
	e := New(testHandle(t, "172.16.0.1"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	if res.FinalStatus != VerdictCPEDown {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictCPEDown)
	}
	if res.RootCauseLevel != model.CauseClient {
		t.Errorf("root_cause_level = %q, want client", res.RootCauseLevel)
	}
	if res.ParallelCheck[0].Status != model.StatusDown {
		t.Errorf("client status = %q, want DOWN", res.ParallelCheck[0].Status)
	}
	if res.ParallelCheck[0].PacketLoss != "100%" {
		t.Errorf("client packet_loss = %q, want 100%%", res.ParallelCheck[0].PacketLoss)
	}
}

// The gateway result is informational: a dead gateway with a live base must
// not push the cascade past stage 1.
func TestGatewayDoesNotGate(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{
		"10.0.0.10": up(2.0),
		// base and gateway both absent
	}}
	e := New(testHandle(t, "172.16.0.1"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if res.FinalStatus != VerdictLinkUp {
		t.Errorf("final_status = %q, want link up despite dead gateway", res.FinalStatus)
	}
}

func TestScenarioCSectorFailure(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{
		// stage 1 all down; sibling base on the shared POP answers
		"10.0.1.1": up(3.0),
	}}
	e := New(testHandle(t, "172.16.0.1"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	if res.FinalStatus != VerdictSectorFailure {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictSectorFailure)
	}
	if res.RootCauseLevel != model.CauseBase {
		t.Errorf("root_cause_level = %q, want base", res.RootCauseLevel)
	}

	// Scan covers own base plus the POP sibling, never the unrelated site
	if len(res.BTSPopScan) != 2 {
		t.Fatalf("bts_pop_scan has %d entries, want 2: %+v", len(res.BTSPopScan), res.BTSPopScan)
	}
	statuses := map[string]string{}
	for _, r := range res.BTSPopScan {
		statuses[r.BaseIP] = r.Status
	}
	if statuses["10.0.0.1"] != model.StatusDown {
		t.Errorf("own base status = %q, want DOWN", statuses["10.0.0.1"])
	}
	if statuses["10.0.1.1"] != model.StatusUp {
		t.Errorf("sibling base status = %q, want UP", statuses["10.0.1.1"])
	}
	if _, ok := statuses["10.9.0.1"]; ok {
		t.Error("unrelated site leaked into the sector scan")
	}

	// Stage 1 evidence still present
	if len(res.ParallelCheck) != 3 {
		t.Errorf("parallel_check lost: %+v", res.ParallelCheck)
	}
	if res.Loopback != nil {
		t.Errorf("loopback = %+v, want nil before stage 3", res.Loopback)
	}
}

func TestScenarioDBackhaulIssue(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{
		"172.16.0.1": up(5.0), // only the loopback answers
	}}
	e := New(testHandle(t, "172.16.0.1"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	if res.FinalStatus != VerdictBackhaulIssue {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictBackhaulIssue)
	}
	if res.RootCauseLevel != model.CauseLoopback {
		t.Errorf("root_cause_level = %q, want loopback", res.RootCauseLevel)
	}
	if res.Loopback == nil || res.Loopback.Status != model.StatusUp {
		t.Errorf("loopback = %+v, want UP", res.Loopback)
	}
	if len(res.BTSPopScan) != 2 {
		t.Errorf("stage-2 evidence lost: %+v", res.BTSPopScan)
	}
	if len(prober.batches) != 3 {
		t.Errorf("probe rounds = %d, want 3", len(prober.batches))
	}
}

func TestScenarioERouterDown(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{}}
	e := New(testHandle(t, "172.16.0.1"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	if res.FinalStatus != VerdictRouterDown {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictRouterDown)
	}
	if res.RootCauseLevel != model.CauseLoopback {
		t.Errorf("root_cause_level = %q, want loopback", res.RootCauseLevel)
	}
	if res.Loopback == nil || res.Loopback.Status != model.StatusDown {
		t.Errorf("loopback = %+v, want DOWN", res.Loopback)
	}
}

func TestScenarioFLoopbackMissing(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{}}
	e := New(testHandle(t, ""), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}

	if res.FinalStatus != VerdictLoopbackMissing {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictLoopbackMissing)
	}
	if res.RootCauseLevel != model.CauseUnknown {
		t.Errorf("root_cause_level = %q, want unknown", res.RootCauseLevel)
	}
	if res.Loopback != nil {
		t.Errorf("loopback = %+v, want nil", res.Loopback)
	}
	// Stage 3 never probed: two rounds only
	if len(prober.batches) != 2 {
		t.Errorf("probe rounds = %d, want 2", len(prober.batches))
	}
}

func TestInvalidLoopbackTreatedAsMissing(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{}}
	e := New(testHandle(t, "not-an-ip"), prober)

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if res.FinalStatus != VerdictLoopbackMissing {
		t.Errorf("final_status = %q, want %q", res.FinalStatus, VerdictLoopbackMissing)
	}
}

func TestDiagnoseNotFound(t *testing.T) {
	e := New(testHandle(t, ""), &fakeProber{})

	if _, err := e.Diagnose(context.Background(), "no-such-target"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDiagnoseNoInventory(t *testing.T) {
	e := New(&inventory.Handle{}, &fakeProber{})

	if _, err := e.Diagnose(context.Background(), "Acme"); !errors.Is(err, model.ErrNoInventory) {
		t.Errorf("err = %v, want ErrNoInventory", err)
	}
}

type fakeRouterChecker struct{}

func (fakeRouterChecker) Check(ctx context.Context, host string) (*model.RouterInfo, error) {
	return &model.RouterInfo{SysName: "pop-a-rtr-01", SysUptimeS: 86400}, nil
}

func TestRouterInfoAttachedWhenLoopbackUp(t *testing.T) {
	prober := &fakeProber{stats: map[string]model.ProbeStat{
		"172.16.0.1": up(5.0),
	}}
	e := New(testHandle(t, "172.16.0.1"), prober, WithRouterChecker(fakeRouterChecker{}))

	res, err := e.Diagnose(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if res.Loopback.Router == nil || res.Loopback.Router.SysName != "pop-a-rtr-01" {
		t.Errorf("router info = %+v, want sysName pop-a-rtr-01", res.Loopback.Router)
	}
}
