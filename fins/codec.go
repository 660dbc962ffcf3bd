package fins

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vinayakas1997/finsbridge/mapping"
)

// Request and Response are the decoded forms of a FINS frame. Kept as the
// teacher's driver.go shaped them, consolidated into one file instead of
// being duplicated between driver.go and command.go.
type Request struct {
	header      Header
	commandCode uint16
	data        []byte
}

type Response struct {
	header      Header
	commandCode uint16
	endCode     uint16
	data        []byte
}

func NewResponse(req Request, endCode uint16, data []byte) Response {
	return Response{header: req.header, commandCode: req.commandCode, endCode: endCode, data: data}
}

func (r Request) GetHeader() Header      { return r.header }
func (r Request) GetCommandCode() uint16 { return r.commandCode }
func (r Request) GetData() []byte        { return r.data }

func (r Response) GetHeader() Header      { return r.header }
func (r Response) GetCommandCode() uint16 { return r.commandCode }
func (r Response) GetEndCode() uint16     { return r.endCode }
func (r Response) GetData() []byte        { return r.data }

// ---------- command frame construction (spec.md §4.3) ----------

// buildReadFrame builds a complete command frame for a 0x0101 memory area
// read: 10-byte header + command code + area_code(1) + word_offset_be(2) +
// bit_or_zero(1) + count_be(2).
func buildReadFrame(header Header, addr MemoryAddress, count uint16) []byte {
	frame := make([]byte, 0, 10+2+4+2)
	frame = append(frame, encodeHeader(header)...)
	cmd := make([]byte, 2)
	binary.BigEndian.PutUint16(cmd, mapping.CommandCodeMemoryAreaRead)
	frame = append(frame, cmd...)
	frame = append(frame, encodeMemoryAddress(addr)...)
	countBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(countBytes, count)
	frame = append(frame, countBytes...)
	return frame
}

// multipleReadEntry is one (area, offset, bit) tuple in a 0x0104 request.
type multipleReadEntry struct {
	addr MemoryAddress
}

// buildMultipleReadFrame builds a 0x0104 request: header + command code +
// n_be(2) + n * (area_code(1) || word_offset_be(2) || bit(1)).
func buildMultipleReadFrame(header Header, entries []multipleReadEntry) []byte {
	frame := make([]byte, 0, 10+2+2+4*len(entries))
	frame = append(frame, encodeHeader(header)...)
	cmd := make([]byte, 2)
	binary.BigEndian.PutUint16(cmd, mapping.CommandCodeMultipleMemoryRead)
	frame = append(frame, cmd...)
	n := make([]byte, 2)
	binary.BigEndian.PutUint16(n, uint16(len(entries)))
	frame = append(frame, n...)
	for _, e := range entries {
		frame = append(frame, encodeMemoryAddress(e.addr)...)
	}
	return frame
}

// buildDiagnosticFrame builds an empty-payload diagnostic command (CPU unit
// data read 0x0501, CPU unit status read 0x0601, clock read 0x0701).
func buildDiagnosticFrame(header Header, commandCode uint16) []byte {
	frame := make([]byte, 0, 12)
	frame = append(frame, encodeHeader(header)...)
	cmd := make([]byte, 2)
	binary.BigEndian.PutUint16(cmd, commandCode)
	return append(frame, cmd...)
}

// ---------- response parsing (spec.md §4.3) ----------

// DecodeResponse parses header(10) + command code(2) + end code(2) + text,
// rejecting anything shorter than 14 bytes.
func DecodeResponse(raw []byte) (Response, error) {
	if len(raw) < 14 {
		return Response{}, fmt.Errorf("insufficient bytes for response: expected >= 14, got %d", len(raw))
	}
	header, err := decodeHeader(raw[0:10])
	if err != nil {
		return Response{}, fmt.Errorf("failed to decode header: %w", err)
	}
	return Response{
		header:      header,
		commandCode: binary.BigEndian.Uint16(raw[10:12]),
		endCode:     binary.BigEndian.Uint16(raw[12:14]),
		data:        raw[14:],
	}, nil
}

// DecodeRequest parses an incoming command frame; used only by the
// simulator (the core never receives commands).
func DecodeRequest(raw []byte) (Request, error) {
	if len(raw) < 12 {
		return Request{}, fmt.Errorf("insufficient bytes for request: expected >= 12, got %d", len(raw))
	}
	header, err := decodeHeader(raw[0:10])
	if err != nil {
		return Request{}, fmt.Errorf("failed to decode header: %w", err)
	}
	return Request{
		header:      header,
		commandCode: binary.BigEndian.Uint16(raw[10:12]),
		data:        raw[12:],
	}, nil
}

// EncodeResponse serializes a Response back onto the wire; used only by the
// simulator.
func EncodeResponse(resp Response) []byte {
	out := make([]byte, 4, 4+len(resp.data))
	binary.BigEndian.PutUint16(out[0:2], resp.commandCode)
	binary.BigEndian.PutUint16(out[2:4], resp.endCode)
	out = append(out, resp.data...)
	return append(encodeHeader(resp.header), out...)
}

// checkEndCode turns a non-success end code into a *ProtocolError.
func checkEndCode(code uint16) error {
	if mapping.IsSuccess(code) || mapping.IsServiceCanceled(code) {
		return nil
	}
	return &ProtocolError{EndCode: code, Message: mapping.EndCodeMessage(code)}
}

// ---------- value conversion (spec.md §4.3's DataType table) ----------

// decodeValue converts words (already padded to an even byte count, grouped
// two bytes per word, big-endian within each word, word0 = MSB half for
// multi-word types) into the Go value dt names.
func decodeValue(dt DataType, words []uint16, bit *uint8) (any, error) {
	switch dt {
	case INT16:
		return int16(words[0]), nil
	case UINT16:
		return words[0], nil
	case CHANNEL, WORD:
		return fmt.Sprintf("%04X", words[0]), nil
	case BOOL:
		// A bit-area read already targets the single requested bit on the
		// wire (the PLC returns one 0x00/0x01 byte per bit, not a packed
		// word) — no further bit-shifting is needed, just a non-zero check.
		if bit == nil {
			return nil, &DataError{Reason: "BOOL decode requires a bit index"}
		}
		return words[0] != 0, nil
	case BCD2DEC:
		v, err := decodeBCDWord(words[0])
		if err != nil {
			return nil, err
		}
		return v, nil
	case BIN, BITS:
		return fmt.Sprintf("%016b", words[0]), nil
	case INT32:
		return int32(uint32(words[0])<<16 | uint32(words[1])), nil
	case UINT32, UDINT:
		return uint32(words[0])<<16 | uint32(words[1]), nil
	case FLOAT:
		bits := uint32(words[0])<<16 | uint32(words[1])
		return math.Float32frombits(bits), nil
	case INT64:
		return int64(wordsToUint64(words)), nil
	case UINT64:
		return wordsToUint64(words), nil
	case DOUBLE:
		return math.Float64frombits(wordsToUint64(words)), nil
	default:
		return nil, &DataError{Reason: fmt.Sprintf("invalid type %q", dt)}
	}
}

func wordsToUint64(words []uint16) uint64 {
	var v uint64
	for _, w := range words {
		v = v<<16 | uint64(w)
	}
	return v
}

// bytesToWords groups raw bytes (padded to an even length by the caller)
// into big-endian 16-bit words.
func bytesToWords(b []byte) []uint16 {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(b[i*2 : i*2+2])
	}
	return words
}

// decodeBCDWord decodes one packed-BCD word: each of the four nibbles must
// be 0-9, matching the teacher's driver.go decodeBCD but scoped to a single
// word (spec.md's BCD2DEC is a 1-word type).
func decodeBCDWord(w uint16) (uint64, error) {
	var result uint64
	for shift := 12; shift >= 0; shift -= 4 {
		nibble := uint64((w >> uint(shift)) & 0xF)
		if nibble > 9 {
			return 0, &BCDBadDigitError{Nibble: byte(nibble), Word: w}
		}
		result = result*10 + nibble
	}
	return result, nil
}
