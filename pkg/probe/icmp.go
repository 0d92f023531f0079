package probe

import (
	"context"
	"log"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/wingedpig/rfdiag/pkg/model"
	"github.com/wingedpig/rfdiag/pkg/util/addrs"
	"github.com/wingedpig/rfdiag/pkg/util/workers"
)

// ICMP probes targets in-process, for hosts without fping installed. Each
// batch fans the targets out through a bounded worker pool; the ProbeStat
// contract is identical to the fping executor's.
type ICMP struct {
	Packets    int
	Privileged bool          // raw sockets; needs CAP_NET_RAW or root
	Interval   time.Duration // between echoes to one target
	Deadline   time.Duration // per-target overall limit
	Workers    int
	RateLimit  float64 // target starts per second (0 = no limit)
}

// NewICMP returns an in-process prober with the standard settings.
func NewICMP(privileged bool) *ICMP {
	return &ICMP{
		Packets:    Packets,
		Privileged: privileged,
		Interval:   100 * time.Millisecond,
		Deadline:   4 * time.Second,
		Workers:    16,
	}
}

// Probe pings every valid target concurrently. A target that errors (DNS,
// socket, deadline) is left out of the result map and so reads as
// unreachable downstream.
func (p *ICMP) Probe(ctx context.Context, targets []string) map[string]model.ProbeStat {
	valid := targets[:0:0]
	for _, t := range targets {
		if addrs.Valid(t) {
			valid = append(valid, t)
		}
	}

	stats := make(map[string]model.ProbeStat, len(valid))
	if len(valid) == 0 {
		return stats
	}

	var mu sync.Mutex
	workers.Each(ctx, len(valid), workers.Config{Workers: p.Workers, RateLimit: p.RateLimit}, func(ctx context.Context, i int) error {
		target := valid[i]
		stat, err := p.pingOne(ctx, target)
		if err != nil {
			log.Printf("WARN: ICMP probe %s: %v", target, err)
			return err
		}

		mu.Lock()
		stats[target] = stat
		mu.Unlock()
		return nil
	})

	return stats
}

func (p *ICMP) pingOne(ctx context.Context, target string) (model.ProbeStat, error) {
	pr := probing.New(target)
	pr.SetNetwork("ip")

	if err := pr.Resolve(); err != nil {
		return model.ProbeStat{}, err
	}

	pr.RecordRtts = false
	pr.Count = p.Packets
	if pr.Count <= 0 {
		pr.Count = Packets
	}
	pr.Interval = p.Interval
	pr.Timeout = p.Deadline
	pr.SetPrivileged(p.Privileged)
	pr.SetLogger(nil)

	if err := pr.RunWithContext(ctx); err != nil {
		return model.ProbeStat{}, err
	}

	s := pr.Statistics()
	stat := model.ProbeStat{
		Sent:     s.PacketsSent,
		Received: s.PacketsRecv,
		Loss:     int(s.PacketLoss),
	}
	if stat.Loss < 0 {
		stat.Loss = 0
	}
	if stat.Loss > 100 {
		stat.Loss = 100
	}
	if s.PacketsRecv > 0 {
		avg := float64(s.AvgRtt) / float64(time.Millisecond)
		stat.Avg = &avg
	}
	return stat, nil
}
