// Package probe turns sets of target addresses into reachability statistics.
// The default executor shells out to fping once per batch; an in-process
// ICMP prober is available where fping is not installed. Both degrade to
// "all targets unreachable" when the mechanism itself fails, so a diagnosis
// always reaches a verdict.
package probe

import (
	"context"

	"github.com/wingedpig/rfdiag/pkg/model"
)

// Packets is the number of echo attempts requested per target.
const Packets = 3

// Prober probes a batch of already-validated addresses in one invocation.
// Implementations never fail a batch over an individual target: a target the
// mechanism could not reach, or could not even attempt, is simply absent
// from the result map and defaults to unreachable via StatFor.
type Prober interface {
	Probe(ctx context.Context, targets []string) map[string]model.ProbeStat
}

// StatFor returns the stat for addr, defaulting to the unreachable stat when
// the prober reported nothing for it.
func StatFor(stats map[string]model.ProbeStat, addr string) model.ProbeStat {
	if s, ok := stats[addr]; ok {
		return s
	}
	return model.Unreachable()
}

// One probes a single address.
func One(ctx context.Context, p Prober, addr string) model.ProbeStat {
	return StatFor(p.Probe(ctx, []string{addr}), addr)
}
