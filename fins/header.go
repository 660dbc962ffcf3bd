package fins

import "fmt"

// Header is the 10-byte FINS frame header common to every command and
// response. Layout and field order kept from the teacher's header.go —
// UDP and TCP FINS share the same header shape, only the framing beneath
// it differs.
type Header struct {
	icf uint8
	rsv uint8
	gct uint8
	dna uint8
	da1 uint8
	da2 uint8
	sna uint8
	sa1 uint8
	sa2 uint8
	sid uint8
}

const (
	icfCommandResponse  uint8 = 0x80 // 1 = command, 0 = response
	icfResponseRequired uint8 = 0x40

	defaultGatewayCount uint8 = 0x02
	defaultReserved     uint8 = 0x00
)

// defaultCommandHeader builds the header used for every outgoing command:
// ICF fixed at 0x80 (spec.md §4.3), gateway count 2. Matches the teacher's
// header.go, which also hardcodes icf to 0x80 regardless of
// response-required state.
func defaultCommandHeader(src, dst finsAddress, serviceID uint8) Header {
	return Header{
		icf: icfCommandResponse,
		rsv: defaultReserved,
		gct: defaultGatewayCount,
		dna: dst.network,
		da1: dst.node,
		da2: dst.unit,
		sna: src.network,
		sa1: src.node,
		sa2: src.unit,
		sid: serviceID,
	}
}

func encodeHeader(h Header) []byte {
	return []byte{h.icf, h.rsv, h.gct, h.dna, h.da1, h.da2, h.sna, h.sa1, h.sa2, h.sid}
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < 10 {
		return Header{}, fmt.Errorf("insufficient data for FINS header: expected 10 bytes, got %d", len(data))
	}
	return Header{
		icf: data[0], rsv: data[1], gct: data[2],
		dna: data[3], da1: data[4], da2: data[5],
		sna: data[6], sa1: data[7], sa2: data[8],
		sid: data[9],
	}, nil
}

func (h Header) IsCommand() bool          { return h.icf&icfCommandResponse != 0 }
func (h Header) IsResponseRequired() bool { return h.icf&icfResponseRequired != 0 }
func (h Header) ServiceID() uint8         { return h.sid }
