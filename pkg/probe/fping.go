package probe

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wingedpig/rfdiag/pkg/model"
	"github.com/wingedpig/rfdiag/pkg/util/addrs"
)

// Fping batches all targets into one fping invocation. Targets are handed
// over through a temp file which is removed on every exit path, including
// spawn failure.
type Fping struct {
	Bin     string // fping binary, default "fping"
	Packets int    // echo attempts per target
}

// NewFping returns an executor with the standard settings.
func NewFping() *Fping {
	return &Fping{Bin: "fping", Packets: Packets}
}

// Probe filters out syntactically invalid targets silently, then runs one
// fping over the rest. An empty filtered set returns an empty map without
// spawning anything. A spawn failure is logged and degrades to an empty map;
// missing entries read as unreachable downstream.
func (f *Fping) Probe(ctx context.Context, targets []string) map[string]model.ProbeStat {
	valid := targets[:0:0]
	for _, t := range targets {
		if addrs.Valid(t) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return map[string]model.ProbeStat{}
	}

	tmp, err := os.CreateTemp("", "rfdiag-targets-*.txt")
	if err != nil {
		log.Printf("WARN: Probe target file: %v", err)
		return map[string]model.ProbeStat{}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(valid, "\n") + "\n"); err != nil {
		tmp.Close()
		log.Printf("WARN: Probe target file: %v", err)
		return map[string]model.ProbeStat{}
	}
	if err := tmp.Close(); err != nil {
		log.Printf("WARN: Probe target file: %v", err)
		return map[string]model.ProbeStat{}
	}

	packets := f.Packets
	if packets <= 0 {
		packets = Packets
	}

	cmd := exec.CommandContext(ctx, f.Bin, "-l", "-c", strconv.Itoa(packets), "-f", tmp.Name())
	var out bytes.Buffer
	// fping writes per-target statistics to stderr; capture both streams and
	// let the parser pick out the lines it recognizes.
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil && out.Len() == 0 {
		// Nothing to parse: the mechanism could not be invoked at all.
		// Degrade instead of failing the diagnosis.
		log.Printf("WARN: fping invocation failed: %v", err)
		return map[string]model.ProbeStat{}
	}

	return ParseReport(out.String())
}
