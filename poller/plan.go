// Package poller implements the C6 per-PLC scheduling loop: it builds a
// ReadPlan once at startup, then repeatedly drives the C5 request engine and
// fans results out to sinks. Grounded on original_source/main.py's
// PLCThread and address_group_check.py's width-based grouping.
package poller

import (
	"github.com/vinayakas1997/finsbridge/config"
	"github.com/vinayakas1997/finsbridge/fins"
)

// PlanEntry is one resolved mapping entry: the OPC UA tag it publishes
// under, the symbolic PLC address, and the DataType to decode it with.
type PlanEntry struct {
	Tag      string
	Address  string
	DataType fins.DataType
}

// ReadPlan is the pre-computed partition of a PLC's address mappings into
// multi-read groups (width-1 items, ≤20 per group) and individual reads
// (width>1 items), plus whether a HEARTBEAT tag was present — matching
// spec.md §3's ReadPlan and §4.6's construction algorithm.
type ReadPlan struct {
	MultiReadGroups [][]PlanEntry
	IndividualReads []PlanEntry
	HeartbeatTag    string // empty if no HEARTBEAT entry was mapped
	AllTags         []string
}

const multiReadGroupSize = 20

// BuildReadPlan partitions mappings per spec.md §4.6: items whose DataType
// occupies exactly one word go into the 1-word pool, chopped into groups of
// at most 20 in insertion order; wider items go to individual_reads in
// mapping order. An unrecognized DataType degrades the entry to
// individual_reads (and is reported back so the caller can log it), rather
// than failing the whole plan.
func BuildReadPlan(mappings []config.AddressMapping) (ReadPlan, []string) {
	var plan ReadPlan
	var warnings []string
	var pool []PlanEntry

	for _, m := range mappings {
		plan.AllTags = append(plan.AllTags, m.OPCUARegAdd)

		if m.PLCRegAdd == config.HeartbeatTag {
			plan.HeartbeatTag = m.OPCUARegAdd
			continue
		}

		dt, err := fins.ParseDataType(m.DataType)
		if err != nil {
			warnings = append(warnings, "mapping "+m.OPCUARegAdd+": "+err.Error()+"; degraded to individual read")
			plan.IndividualReads = append(plan.IndividualReads, PlanEntry{Tag: m.OPCUARegAdd, Address: m.PLCRegAdd, DataType: fins.INT16})
			continue
		}

		// Resolve once at plan-build time so the documented E/EM
		// bank-length ambiguity (spec.md §4.2/§9) is logged here, a single
		// time per mapping, rather than silently discarded on every cycle's
		// read.
		if _, warn, err := fins.ParseAddress(m.PLCRegAdd, 0); err != nil {
			warnings = append(warnings, "mapping "+m.OPCUARegAdd+": "+err.Error())
		} else if warn != nil {
			warnings = append(warnings, warn.Error())
		}

		width, _ := fins.WordsPerItem(dt)
		entry := PlanEntry{Tag: m.OPCUARegAdd, Address: m.PLCRegAdd, DataType: dt}
		if width == 1 {
			pool = append(pool, entry)
		} else {
			plan.IndividualReads = append(plan.IndividualReads, entry)
		}
	}

	for i := 0; i < len(pool); i += multiReadGroupSize {
		end := i + multiReadGroupSize
		if end > len(pool) {
			end = len(pool)
		}
		plan.MultiReadGroups = append(plan.MultiReadGroups, pool[i:end])
	}

	return plan, warnings
}
