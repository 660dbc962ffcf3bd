package fins

import (
	"encoding/binary"
	"fmt"
	"net"
)

// finsAddress is a network/node/unit triple, either end of a FINS exchange.
type finsAddress struct {
	network byte
	node    byte
	unit    byte
}

// Address is a full UDP device address: the network-layer endpoint plus the
// FINS network/node/unit triple that goes in the header. Replaces the
// teacher's TCP-addressed Address (net.TCPAddr) — spec.md §1 restricts this
// core to FINS/UDP.
type Address struct {
	finsAddress finsAddress
	udpAddress  *net.UDPAddr
}

// NewAddress resolves ip:port and pairs it with the FINS network/node/unit
// identifiers used in the frame header.
func NewAddress(ip string, port int, network, node, unit byte) (Address, error) {
	ipAddr := net.ParseIP(ip)
	if ipAddr == nil {
		return Address{}, fmt.Errorf("invalid IP address: %s", ip)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ipAddr.String(), fmt.Sprint(port)))
	if err != nil {
		return Address{}, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	return Address{
		udpAddress: udpAddr,
		finsAddress: finsAddress{
			network: network,
			node:    node,
			unit:    unit,
		},
	}, nil
}

func (a Address) String() string {
	return fmt.Sprintf("FINS Address: Network: %d, Node: %d, Unit: %d, UDP: %s",
		a.finsAddress.network,
		a.finsAddress.node,
		a.finsAddress.unit,
		a.udpAddress.String())
}

// Clone creates a deep copy of the Address.
func (a Address) Clone() Address {
	newUDPAddr := *a.udpAddress
	return Address{
		udpAddress:  &newUDPAddr,
		finsAddress: a.finsAddress,
	}
}

// ---------- MEMORY ADDRESS FUNCTIONS ----------

// MemoryAddress is the four-byte on-wire memory address: area code, 16-bit
// word offset, and bit-or-zero. Consolidated here — the teacher duplicated
// this type definition across address.go and driver.go; this is the one
// definition the rest of the package uses.
type MemoryAddress struct {
	memoryArea byte
	address    uint16
	bitOffset  byte
}

func (m MemoryAddress) GetMemoryArea() byte { return m.memoryArea }
func (m MemoryAddress) GetAddress() uint16  { return m.address }
func (m MemoryAddress) GetBitOffset() byte  { return m.bitOffset }

func memAddr(memoryArea byte, address uint16) MemoryAddress {
	return MemoryAddress{memoryArea, address, 0}
}

func memAddrWithBitOffset(memoryArea byte, address uint16, bitOffset byte) MemoryAddress {
	return MemoryAddress{memoryArea, address, bitOffset}
}

func encodeMemoryAddress(memoryAddr MemoryAddress) []byte {
	bytes := make([]byte, 4)
	bytes[0] = memoryAddr.memoryArea
	binary.BigEndian.PutUint16(bytes[1:3], memoryAddr.address)
	bytes[3] = memoryAddr.bitOffset
	return bytes
}

// DecodeMemoryAddress is used by the simulator to parse an incoming
// request's address bytes.
func DecodeMemoryAddress(data []byte) (MemoryAddress, error) {
	if len(data) < 4 {
		return MemoryAddress{}, fmt.Errorf("insufficient data for memory address: expected 4 bytes, got %d", len(data))
	}
	return MemoryAddress{
		memoryArea: data[0],
		address:    binary.BigEndian.Uint16(data[1:3]),
		bitOffset:  data[3],
	}, nil
}

// toMemoryAddress converts a parsed symbolic address into its wire form.
func (p ParsedAddress) toMemoryAddress() MemoryAddress {
	if p.Kind == KindBit {
		return memAddrWithBitOffset(p.AreaCode, p.WordOffset, p.Bit)
	}
	return memAddr(p.AreaCode, p.WordOffset)
}
