// Package inventory owns the radio-link topology records and the lookup
// tables derived from them. An Index is immutable once built; refreshes
// construct a new Index off to the side and publish it through a Handle.
package inventory

import (
	"strings"

	"github.com/wingedpig/rfdiag/pkg/model"
	"github.com/wingedpig/rfdiag/pkg/util/addrs"
)

// Index resolves free-text queries to topology records through four lookup
// tables. Name tables are keyed case-folded; the address table is keyed by
// the literal address string. When several records share a name key the last
// loaded row wins -- the representative is only used to recover the shared
// site fields, never as the sole member of the site.
type Index struct {
	records  []model.TopologyRecord
	byClient map[string]*model.TopologyRecord
	byBTS    map[string]*model.TopologyRecord
	byPOP    map[string]*model.TopologyRecord
	byAddr   map[string]*model.TopologyRecord
}

// Build constructs an Index from parsed source rows. Missing fields default
// to the empty string; a loopback of "N/A" (any case) or "" is recorded as
// absent; an empty BTS name permanently falls back to the POP name. Rows
// whose client or base IP is not a valid address are dropped whole.
func Build(rows []map[string]string) *Index {
	recs := make([]model.TopologyRecord, 0, len(rows))

	for _, row := range rows {
		clientIP := row[FieldClientIP]
		baseIP := row[FieldBaseIP]
		if !addrs.Valid(clientIP) || !addrs.Valid(baseIP) {
			continue
		}

		bts := row[FieldBTSName]
		pop := row[FieldPOPName]
		if bts == "" {
			bts = pop
		}

		loopback := row[FieldLoopbackIP]
		if strings.EqualFold(loopback, "N/A") {
			loopback = ""
		}

		recs = append(recs, model.TopologyRecord{
			Client:     row[FieldClientName],
			BTS:        bts,
			POP:        pop,
			ClientIP:   clientIP,
			BaseIP:     baseIP,
			LoopbackIP: loopback,
		})
	}

	return FromRecords(recs)
}

// FromRecords indexes an already-validated record set, preserving insertion
// order (later records overwrite earlier ones for non-unique keys). Used by
// Build and when restoring a snapshot.
func FromRecords(recs []model.TopologyRecord) *Index {
	ix := &Index{
		records:  recs,
		byClient: make(map[string]*model.TopologyRecord, len(recs)),
		byBTS:    make(map[string]*model.TopologyRecord, len(recs)),
		byPOP:    make(map[string]*model.TopologyRecord, len(recs)),
		byAddr:   make(map[string]*model.TopologyRecord, 2*len(recs)),
	}

	for i := range recs {
		rec := &ix.records[i]
		ix.byClient[strings.ToLower(rec.Client)] = rec
		ix.byBTS[strings.ToLower(rec.BTS)] = rec
		ix.byPOP[strings.ToLower(rec.POP)] = rec
		ix.byAddr[rec.ClientIP] = rec
		ix.byAddr[rec.BaseIP] = rec
	}

	return ix
}

// Resolve maps a query to a record, probing the tables in fixed priority
// order: client name, address, BTS name, POP name. The ordering matters: a
// query that is simultaneously an address and a BTS name resolves as an
// address because that table is consulted first.
func (ix *Index) Resolve(query string) (*model.TopologyRecord, bool) {
	q := strings.ToLower(strings.TrimSpace(query))

	if rec, ok := ix.byClient[q]; ok {
		return rec, true
	}
	if rec, ok := ix.byAddr[q]; ok {
		return rec, true
	}
	if rec, ok := ix.byBTS[q]; ok {
		return rec, true
	}
	if rec, ok := ix.byPOP[q]; ok {
		return rec, true
	}
	return nil, false
}

// Siblings returns the distinct base addresses of every record that shares
// rec's BTS name or POP name, in record order. The set includes rec's own
// base address.
func (ix *Index) Siblings(rec *model.TopologyRecord) []string {
	seen := make(map[string]bool)
	var bases []string

	for i := range ix.records {
		r := &ix.records[i]
		if r.BTS != rec.BTS && r.POP != rec.POP {
			continue
		}
		if seen[r.BaseIP] {
			continue
		}
		seen[r.BaseIP] = true
		bases = append(bases, r.BaseIP)
	}

	return bases
}

// Locator annotates an address with a geographic location. A nil Locator
// disables enrichment.
type Locator interface {
	Locate(ip string) (country, city string)
}

// Hierarchy reshapes the inventory into the grouped display view: site key
// (BTS name, which already absorbed the POP fallback at load) to the client
// links under it. Records with an empty site key are skipped.
func (ix *Index) Hierarchy(geo Locator) map[string][]model.HierarchyEntry {
	out := make(map[string][]model.HierarchyEntry)

	for i := range ix.records {
		rec := &ix.records[i]
		key := rec.BTS
		if key == "" {
			key = rec.POP
		}
		if key == "" {
			continue
		}

		entry := model.HierarchyEntry{
			Client: rec.Client,
			IP:     rec.ClientIP,
			Base:   rec.BaseIP,
		}
		if geo != nil {
			entry.Country, entry.City = geo.Locate(rec.ClientIP)
		}
		out[key] = append(out[key], entry)
	}

	return out
}

// Len returns the number of retained records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Records returns the retained record set in load order.
func (ix *Index) Records() []model.TopologyRecord {
	return ix.records
}
