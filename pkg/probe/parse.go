package probe

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/wingedpig/rfdiag/pkg/model"
)

// The report has two recognized line shapes, matched independently so extra
// diagnostic chatter between them is ignored:
//
//	10.0.0.1 : 3 transmitted, 3 received, 0% loss, min/avg/max = 1.2/2.3/5.4
//	10.0.0.2 is unreachable
var (
	statsLine = regexp.MustCompile(
		`^(?P<addr>[0-9a-fA-F.:]+)\s*:\s*` +
			`(?P<sent>\d+)\s*transmitted,\s*` +
			`(?P<recv>\d+)\s*received,\s*` +
			`(?P<loss>\d+)%\s*loss.*` +
			`min/avg/max\s*=\s*[\d.]+/(?P<avg>[\d.]+)/[\d.]+`)

	unreachableLine = regexp.MustCompile(`^(?P<addr>[0-9a-fA-F.:]+)\s+is\s+unreachable`)
)

// ParseReport parses the textual probe report into per-address stats. Lines
// matching neither shape are dropped. Pure function: identical input yields
// identical output.
func ParseReport(report string) map[string]model.ProbeStat {
	stats := make(map[string]model.ProbeStat)

	scanner := bufio.NewScanner(strings.NewReader(report))
	for scanner.Scan() {
		line := scanner.Text()

		if m := statsLine.FindStringSubmatch(line); m != nil {
			sent, _ := strconv.Atoi(m[statsLine.SubexpIndex("sent")])
			recv, _ := strconv.Atoi(m[statsLine.SubexpIndex("recv")])
			loss, _ := strconv.Atoi(m[statsLine.SubexpIndex("loss")])
			avg, err := strconv.ParseFloat(m[statsLine.SubexpIndex("avg")], 64)

			stat := model.ProbeStat{Sent: sent, Received: recv, Loss: loss}
			if err == nil {
				stat.Avg = &avg
			}
			stats[m[statsLine.SubexpIndex("addr")]] = stat
			continue
		}

		if m := unreachableLine.FindStringSubmatch(line); m != nil {
			stats[m[unreachableLine.SubexpIndex("addr")]] = model.Unreachable()
		}
	}

	return stats
}
