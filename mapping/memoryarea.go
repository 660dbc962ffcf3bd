package mapping

import "fmt"

// MemoryArea identifies a FINS memory area and the area codes used to
// address it in word-sized or bit-sized operations. Word access is always
// available; bit access is optional (HasBit reports which).
type MemoryArea struct {
	Name   string
	Word   byte
	Bit    byte
	HasBit bool
}

// Area codes, standard OMRON FINS memory-area-code table (CS/CJ/CP/NJ
// family). DM and WORK word codes (0x82, 0xB1) are pinned by spec.md §8's
// seed scenarios 1 and 3 — keep them byte-for-byte.
const (
	areaCIOWord byte = 0xB0
	areaCIOBit  byte = 0x30

	areaWorkWord byte = 0xB1
	areaWorkBit  byte = 0x31

	areaHoldingWord byte = 0xB2
	areaHoldingBit  byte = 0x32

	areaAuxWord byte = 0xB3
	areaAuxBit  byte = 0x33

	areaDMWord byte = 0x82
	areaDMBit  byte = 0x02

	// Timer and counter present-value/flag areas share their FINS area code
	// (spec.md §9); they are disambiguated only by the counter's implicit
	// +0x0800 word offset applied at parse time.
	areaTimerPV   byte = 0x89
	areaTimerFlag byte = 0x09

	areaCounterPV   byte = 0x89
	areaCounterFlag byte = 0x09
)

// counterWordOffset is the documented quirk (spec.md §9): counter word
// addresses carry an implicit +0x0800 applied at parse time so the PLC can
// tell a counter's present value apart from a timer's at the same area
// code. The flag (bit) form does not carry this offset.
const counterWordOffset = 0x0800

// emBankWord/emBankBit return the area codes for extended memory bank n.
// Banks 0-15 (EM0-EMF) use the single hex-digit convention (word 0xA0-0xAF,
// bit 0x20-0x2F); banks 16-24 (EM10-EM18, the newer CJ2/NJ-only banks) use a
// disjoint range (word 0x60-0x68, bit 0xE0-0xE8) so the two never collide.
func emBankWord(bank int) byte {
	if bank < 16 {
		return byte(0xA0 + bank)
	}
	return byte(0x60 + (bank - 16))
}

func emBankBit(bank int) byte {
	if bank < 16 {
		return byte(0x20 + bank)
	}
	return byte(0xE0 + (bank - 16))
}

// areaTable is the C1 static table: process-wide immutable, looked up by
// symbolic name. Built once in init().
var areaTable map[string]MemoryArea

func init() {
	areaTable = map[string]MemoryArea{
		"CIO":         {Name: "CIO", Word: areaCIOWord, Bit: areaCIOBit, HasBit: true},
		"WORK":        {Name: "WORK", Word: areaWorkWord, Bit: areaWorkBit, HasBit: true},
		"HOLDING":     {Name: "HOLDING", Word: areaHoldingWord, Bit: areaHoldingBit, HasBit: true},
		"AUXILIARY":   {Name: "AUXILIARY", Word: areaAuxWord, Bit: areaAuxBit, HasBit: true},
		"DATA_MEMORY": {Name: "DATA_MEMORY", Word: areaDMWord, Bit: areaDMBit, HasBit: true},
		"TIMER":       {Name: "TIMER", Word: areaTimerPV, Bit: areaTimerFlag, HasBit: true},
		"COUNTER":     {Name: "COUNTER", Word: areaCounterPV, Bit: areaCounterFlag, HasBit: true},
	}

	// EM0..EMF: single hex-digit banks 0-15.
	for bank := 0; bank < 16; bank++ {
		name := fmt.Sprintf("EM%X", bank)
		areaTable[name] = MemoryArea{
			Name:   name,
			Word:   emBankWord(bank),
			Bit:    emBankBit(bank),
			HasBit: true,
		}
	}

	// EM10..EM18: two-decimal-digit banks 16-24, disambiguated from the
	// single-digit table by the caller (see fins.ParseAddress) rather than
	// by key collision here.
	for bank := 16; bank <= 24; bank++ {
		name := fmt.Sprintf("EM%X", bank)
		areaTable[name] = MemoryArea{
			Name:   name,
			Word:   emBankWord(bank),
			Bit:    emBankBit(bank),
			HasBit: true,
		}
	}
}

// LookupArea returns the MemoryArea registered under name (e.g. "CIO",
// "DATA_MEMORY", "EMA", "EM17"). The lookup is total over valid names and
// reports ok=false otherwise, per spec.md §4.1.
func LookupArea(name string) (MemoryArea, bool) {
	a, ok := areaTable[name]
	return a, ok
}

// CounterWordOffset exposes the +0x0800 quirk to the address parser.
func CounterWordOffset() uint16 { return counterWordOffset }
