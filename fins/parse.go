package fins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vinayakas1997/finsbridge/mapping"
)

// AddressKind distinguishes a word address from a bit address.
type AddressKind int

const (
	KindWord AddressKind = iota
	KindBit
)

// ParsedAddress is the C2 output: a fully resolved symbolic address. It
// carries the area code to use on the wire directly (rather than a
// MemoryArea reference) since that is all the codec needs downstream.
type ParsedAddress struct {
	AreaName   string
	AreaCode   byte
	WordOffset uint16
	Bit        uint8 // valid only when Kind == KindBit
	Kind       AddressKind
}

// ParseWarning is returned alongside a successfully parsed address when the
// parser had to resolve the documented E/EM bank-length ambiguity
// (spec.md §4.2/§9). It is never an error — callers log it once at
// ReadPlan-build time.
type ParseWarning struct {
	Address string
	Detail  string
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("ambiguous address %q: %s", w.Address, w.Detail)
}

// emSingleBanks maps a hex bank digit to its EM area name, mirroring
// mem_address_parser.py's em_single_banks table.
var emSingleBanks = map[byte]string{
	'0': "EM0", '1': "EM1", '2': "EM2", '3': "EM3",
	'4': "EM4", '5': "EM5", '6': "EM6", '7': "EM7",
	'8': "EM8", '9': "EM9", 'A': "EMA", 'B': "EMB",
	'C': "EMC", 'D': "EMD", 'E': "EME", 'F': "EMF",
}

// emDoubleBanks maps the two-decimal-digit bank string to its EM area name,
// mirroring mem_address_parser.py's em_double_banks table.
var emDoubleBanks = map[string]string{
	"10": "EM10", "11": "EM11", "12": "EM12", "13": "EM13", "14": "EM14",
	"15": "EM15", "16": "EM16", "17": "EM17", "18": "EM18",
}

// ParseAddress parses a case-insensitive symbolic address, applying extraOffset
// to the resolved word offset afterward (spec.md §8 "parser is offset-linear":
// parse(addr, off) == parse(addr, 0) with off added post-hoc). It returns a
// non-nil *ParseWarning as a second value when it had to resolve the
// documented E/EM ambiguity; this is informational, not a failure.
func ParseAddress(address string, extraOffset uint16) (ParsedAddress, *ParseWarning, error) {
	if address == "" {
		return ParsedAddress{}, nil, &AddressError{Input: address, Reason: "empty input"}
	}

	// CIO addresses omit a letter prefix; synthesize one so the rest of the
	// parser can treat every address uniformly, per mem_address_parser.py's
	// parse() prepending 'Z'.
	work := address
	if isDigit(work[0]) {
		work = "Z" + work
	}

	if idx := strings.IndexByte(work, '.'); idx >= 0 {
		return parseBitAddress(address, work, idx, extraOffset)
	}
	return parseWordAddress(address, work, extraOffset)
}

func parseWordAddress(original, work string, extraOffset uint16) (ParsedAddress, *ParseWarning, error) {
	prefix, rest, isEM := splitPrefix(work)

	switch prefix {
	case "D", "W", "H", "A", "Z", "T":
		num, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return ParsedAddress{}, nil, &AddressError{Input: original, Reason: fmt.Sprintf("malformed number %q", rest)}
		}
		area, ok := mapping.LookupArea(prefixAreaName(prefix))
		if !ok {
			return ParsedAddress{}, nil, &AddressError{Input: original, Reason: "unknown prefix"}
		}
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Word,
			WordOffset: uint16(num) + extraOffset,
			Kind:       KindWord,
		}, nil, nil

	case "C":
		num, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return ParsedAddress{}, nil, &AddressError{Input: original, Reason: fmt.Sprintf("malformed number %q", rest)}
		}
		area, _ := mapping.LookupArea("COUNTER")
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Word,
			WordOffset: uint16(num) + mapping.CounterWordOffset() + extraOffset,
			Kind:       KindWord,
		}, nil, nil

	case "EM":
		area, addr, err := resolveEMTwoDigit(original, rest, false)
		if err != nil {
			return ParsedAddress{}, nil, err
		}
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Word,
			WordOffset: addr + extraOffset,
			Kind:       KindWord,
		}, nil, nil

	case "E":
		area, addr, warn, err := resolveESingleOrAmbiguous(original, rest, false)
		if err != nil {
			return ParsedAddress{}, nil, err
		}
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Word,
			WordOffset: addr + extraOffset,
			Kind:       KindWord,
		}, warn, nil

	default:
		_ = isEM
		return ParsedAddress{}, nil, &AddressError{Input: original, Reason: "unknown prefix"}
	}
}

func parseBitAddress(original, work string, dotIdx int, extraOffset uint16) (ParsedAddress, *ParseWarning, error) {
	base := work[:dotIdx]
	bitStr := work[dotIdx+1:]

	bitNum, err := strconv.ParseUint(bitStr, 10, 8)
	if err != nil || bitNum > 15 {
		return ParsedAddress{}, nil, &AddressError{Input: original, Reason: fmt.Sprintf("bit index out of range: %q", bitStr)}
	}

	prefix, rest, _ := splitPrefix(base)

	switch prefix {
	case "D", "W", "H", "A", "Z", "T":
		num, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return ParsedAddress{}, nil, &AddressError{Input: original, Reason: fmt.Sprintf("malformed number %q", rest)}
		}
		area, ok := mapping.LookupArea(prefixAreaName(prefix))
		if !ok {
			return ParsedAddress{}, nil, &AddressError{Input: original, Reason: "unknown prefix"}
		}
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Bit,
			WordOffset: uint16(num) + extraOffset,
			Bit:        uint8(bitNum),
			Kind:       KindBit,
		}, nil, nil

	case "C":
		// Counter flag form does NOT carry the +0x0800 offset (spec.md §9).
		num, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return ParsedAddress{}, nil, &AddressError{Input: original, Reason: fmt.Sprintf("malformed number %q", rest)}
		}
		area, _ := mapping.LookupArea("COUNTER")
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Bit,
			WordOffset: uint16(num) + extraOffset,
			Bit:        uint8(bitNum),
			Kind:       KindBit,
		}, nil, nil

	case "EM":
		area, addr, err := resolveEMTwoDigit(original, rest, true)
		if err != nil {
			return ParsedAddress{}, nil, err
		}
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Bit,
			WordOffset: addr + extraOffset,
			Bit:        uint8(bitNum),
			Kind:       KindBit,
		}, nil, nil

	case "E":
		area, addr, warn, err := resolveESingleOrAmbiguous(original, rest, true)
		if err != nil {
			return ParsedAddress{}, nil, err
		}
		return ParsedAddress{
			AreaName:   area.Name,
			AreaCode:   area.Bit,
			WordOffset: addr + extraOffset,
			Bit:        uint8(bitNum),
			Kind:       KindBit,
		}, warn, nil

	default:
		return ParsedAddress{}, nil, &AddressError{Input: original, Reason: "unknown prefix"}
	}
}

// splitPrefix returns the area prefix ("EM" checked before a single
// character) and the remaining digits, matching
// mem_address_parser.py's _get_address_prefix_info.
func splitPrefix(s string) (prefix, rest string, isEM bool) {
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "EM") {
		return "EM", s[2:], true
	}
	if len(s) == 0 {
		return "", "", false
	}
	return upper[:1], s[1:], false
}

func prefixAreaName(prefix string) string {
	switch prefix {
	case "D":
		return "DATA_MEMORY"
	case "W":
		return "WORK"
	case "H":
		return "HOLDING"
	case "A":
		return "AUXILIARY"
	case "Z":
		return "CIO"
	case "T":
		return "TIMER"
	default:
		return ""
	}
}

// resolveEMTwoDigit parses the tail of an explicit "EM" prefix: two decimal
// digits selecting bank 10-18, then the remaining decimal address.
func resolveEMTwoDigit(original, tail string, bit bool) (mapping.MemoryArea, uint16, error) {
	if len(tail) < 3 {
		return mapping.MemoryArea{}, 0, &AddressError{Input: original, Reason: fmt.Sprintf("invalid EM address format: EM%s", tail)}
	}
	bankStr := tail[:2]
	if !isAllDigits(bankStr) {
		return mapping.MemoryArea{}, 0, &AddressError{Input: original, Reason: fmt.Sprintf("invalid EM bank number: %s", bankStr)}
	}
	bankName, ok := emDoubleBanks[bankStr]
	if !ok {
		return mapping.MemoryArea{}, 0, &AddressError{Input: original, Reason: fmt.Sprintf("invalid EM bank number: %s", bankStr)}
	}
	num, err := strconv.ParseUint(tail[2:], 10, 32)
	if err != nil {
		return mapping.MemoryArea{}, 0, &AddressError{Input: original, Reason: fmt.Sprintf("malformed EM address: %s", tail[2:])}
	}
	area, ok := mapping.LookupArea(bankName)
	if !ok {
		return mapping.MemoryArea{}, 0, &AddressError{Input: original, Reason: "unknown EM bank"}
	}
	_ = bit
	return area, uint16(num), nil
}

// resolveESingleOrAmbiguous resolves the single-character "E" prefix. Per
// spec.md §9, the source's disambiguation between EM0..EMF and EM10..EM18 is
// length-based and a documented latent ambiguity: this picks the two-digit
// bank when the tail's first two characters are decimal digits forming a
// valid two-digit bank AND the remainder is >= 3 digits (tail length >= 5);
// otherwise falls back to the single hex-digit bank. It always returns a
// *ParseWarning when the two-digit branch is taken, since that is the
// ambiguous case spec.md calls out.
func resolveESingleOrAmbiguous(original, tail string, bit bool) (mapping.MemoryArea, uint16, *ParseWarning, error) {
	if len(tail) < 3 {
		return mapping.MemoryArea{}, 0, nil, &AddressError{Input: original, Reason: fmt.Sprintf("invalid E address format: E%s", tail)}
	}

	if len(tail) >= 5 && isAllDigits(tail[:2]) {
		bankStr := tail[:2]
		if bankName, ok := emDoubleBanks[bankStr]; ok {
			num, err := strconv.ParseUint(tail[2:], 10, 32)
			if err != nil {
				return mapping.MemoryArea{}, 0, nil, &AddressError{Input: original, Reason: fmt.Sprintf("malformed E address: %s", tail[2:])}
			}
			area, ok := mapping.LookupArea(bankName)
			if !ok {
				return mapping.MemoryArea{}, 0, nil, &AddressError{Input: original, Reason: "unknown EM bank"}
			}
			warn := &ParseWarning{
				Address: original,
				Detail:  fmt.Sprintf("resolved as two-digit bank %s; single-digit bank %s was also a candidate", bankName, string(tail[0])),
			}
			return area, uint16(num), warn, nil
		}
	}

	bankChar := byte(0)
	if len(tail) > 0 {
		bankChar = toUpperByte(tail[0])
	}
	bankName, ok := emSingleBanks[bankChar]
	if !ok {
		return mapping.MemoryArea{}, 0, nil, &AddressError{Input: original, Reason: fmt.Sprintf("invalid E bank: %c", bankChar)}
	}
	num, err := strconv.ParseUint(tail[1:], 10, 32)
	if err != nil {
		return mapping.MemoryArea{}, 0, nil, &AddressError{Input: original, Reason: fmt.Sprintf("malformed E address: %s", tail[1:])}
	}
	area, ok := mapping.LookupArea(bankName)
	if !ok {
		return mapping.MemoryArea{}, 0, nil, &AddressError{Input: original, Reason: "unknown EM bank"}
	}
	_ = bit
	return area, uint16(num), nil, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func toUpperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
