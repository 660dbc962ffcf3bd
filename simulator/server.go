// Package simulator implements a soft-PLC: an in-process FINS/UDP server
// used by integration tests. Adapted from the teacher's TCP-framed
// PLC simulator (fins/server.go) to UDP datagrams — no length-prefix
// framing is needed since a UDP socket already preserves message
// boundaries, and every area the core addresses (not just data memory) is
// backed by its own buffer.
package simulator

import (
	"encoding/binary"
	"log"
	"net"
	"sync"
	"time"

	"github.com/vinayakas1997/finsbridge/fins"
	"github.com/vinayakas1997/finsbridge/mapping"
)

// areaSize is the per-area word count backing each simulated memory area.
// OMRON DM is 32768 words on the CS/CJ family; the rest are sized the same
// for simplicity since this is a test fixture, not a faithful capacity
// model.
const areaSize = 32768

// Server is a soft-PLC: it owns one UDP socket and answers FINS read
// requests out of in-memory area buffers that tests can seed directly.
type Server struct {
	mu       sync.Mutex
	conn     *net.UDPConn
	areas    map[byte][]uint16 // word-area-code -> word buffer
	bitAreas map[byte][]byte   // bit-area-code -> bit buffer (0/1 per entry)
	closed   bool
	wg       sync.WaitGroup
}

// New starts a simulator listening on addr (e.g. "127.0.0.1:0" to let the
// OS pick a free port; call Addr() to discover it).
func New(addr string) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		conn:     conn,
		areas:    make(map[byte][]uint16),
		bitAreas: make(map[byte][]byte),
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the socket's local address (useful when New was given port 0).
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Close shuts the simulator down.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.conn.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			log.Printf("simulator: read error: %v", err)
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])
		go s.handleDatagram(raw, remote)
	}
}

func (s *Server) handleDatagram(raw []byte, remote *net.UDPAddr) {
	req, err := fins.DecodeRequest(raw)
	if err != nil {
		log.Printf("simulator: request decode error: %v", err)
		return
	}

	resp := s.handle(req)
	respBytes := fins.EncodeResponse(resp)

	if _, err := s.conn.WriteToUDP(respBytes, remote); err != nil {
		log.Printf("simulator: response write error: %v", err)
	}
}

func (s *Server) handle(r fins.Request) fins.Response {
	switch r.GetCommandCode() {
	case mapping.CommandCodeMemoryAreaRead:
		return s.handleMemoryRead(r)
	case mapping.CommandCodeMultipleMemoryRead:
		return s.handleMultipleRead(r)
	case mapping.CommandCodeCPUUnitStatusRead:
		return s.handleStatusRead(r)
	case mapping.CommandCodeClockRead:
		return s.handleClockRead(r)
	case mapping.CommandCodeCPUUnitDataRead:
		return s.handleUnitDataRead(r)
	default:
		return fins.NewResponse(r, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
}

func (s *Server) handleMemoryRead(r fins.Request) fins.Response {
	data := r.GetData()
	if len(data) < 6 {
		return fins.NewResponse(r, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
	mem, err := fins.DecodeMemoryAddress(data[:4])
	if err != nil {
		return fins.NewResponse(r, mapping.EndCodeAddressRangeExceeded, nil)
	}
	count := binary.BigEndian.Uint16(data[4:6])

	s.mu.Lock()
	defer s.mu.Unlock()

	if bitArea, ok := s.bitAreas[mem.GetMemoryArea()]; ok {
		start := int(mem.GetAddress())*16 + int(mem.GetBitOffset())
		end := start + int(count)
		if start < 0 || end > len(bitArea) {
			return fins.NewResponse(r, mapping.EndCodeAddressRangeExceeded, nil)
		}
		out := make([]byte, count)
		copy(out, bitArea[start:end])
		return fins.NewResponse(r, mapping.EndCodeNormalCompletion, out)
	}

	words, ok := s.areas[mem.GetMemoryArea()]
	if !ok {
		return fins.NewResponse(r, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
	start := int(mem.GetAddress())
	end := start + int(count)
	if start < 0 || end > len(words) {
		return fins.NewResponse(r, mapping.EndCodeAddressRangeExceeded, nil)
	}
	out := make([]byte, count*2)
	for i := start; i < end; i++ {
		binary.BigEndian.PutUint16(out[(i-start)*2:], words[i])
	}
	return fins.NewResponse(r, mapping.EndCodeNormalCompletion, out)
}

func (s *Server) handleMultipleRead(r fins.Request) fins.Response {
	data := r.GetData()
	if len(data) < 2 {
		return fins.NewResponse(r, mapping.EndCodeNotSupportedByModelVersion, nil)
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	entries := data[2:]
	if len(entries) < n*4 {
		return fins.NewResponse(r, mapping.EndCodeNotSupportedByModelVersion, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Each response record is area_code(1) || value(2), per spec.md's seed
	// scenario 3 (`82 12 34 B1 00 01`).
	var out []byte
	for i := 0; i < n; i++ {
		entry := entries[i*4 : i*4+4]
		mem, err := fins.DecodeMemoryAddress(entry)
		if err != nil {
			return fins.NewResponse(r, mapping.EndCodeAddressRangeExceeded, nil)
		}
		words, ok := s.areas[mem.GetMemoryArea()]
		if !ok || int(mem.GetAddress()) >= len(words) {
			return fins.NewResponse(r, mapping.EndCodeAddressRangeExceeded, nil)
		}
		buf := make([]byte, 3)
		buf[0] = mem.GetMemoryArea()
		binary.BigEndian.PutUint16(buf[1:3], words[mem.GetAddress()])
		out = append(out, buf...)
	}
	return fins.NewResponse(r, mapping.EndCodeNormalCompletion, out)
}

func (s *Server) handleStatusRead(r fins.Request) fins.Response {
	data := make([]byte, 18)
	data[0] = byte(mapping.StatusRun)
	data[1] = byte(mapping.ModeRun)
	return fins.NewResponse(r, mapping.EndCodeNormalCompletion, data)
}

func (s *Server) handleClockRead(r fins.Request) fins.Response {
	now := time.Now()
	data := []byte{
		toBCD(now.Year() % 100),
		toBCD(int(now.Month())),
		toBCD(now.Day()),
		toBCD(now.Hour()),
		toBCD(now.Minute()),
		toBCD(now.Second()),
		toBCD(int(now.Weekday())),
	}
	return fins.NewResponse(r, mapping.EndCodeNormalCompletion, data)
}

func (s *Server) handleUnitDataRead(r fins.Request) fins.Response {
	data := make([]byte, 40)
	copy(data[0:20], []byte("SIMCPU              "))
	copy(data[20:40], []byte("V1.0                "))
	return fins.NewResponse(r, mapping.EndCodeNormalCompletion, data)
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}

// SeedWords preloads areaCode's word buffer at offset with values, creating
// the buffer on first use. Lets a test populate D100, W0, etc. before
// issuing reads through a real fins.Client.
func (s *Server) SeedWords(areaCode byte, offset uint16, values []uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	words, ok := s.areas[areaCode]
	if !ok {
		words = make([]uint16, areaSize)
		s.areas[areaCode] = words
	}
	copy(words[offset:], values)
}

// SeedBits preloads bitAreaCode's bit buffer, one byte (0 or 1) per bit
// position starting at word*16+bitOffset.
func (s *Server) SeedBits(bitAreaCode byte, word uint16, bitOffset byte, values []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bits, ok := s.bitAreas[bitAreaCode]
	if !ok {
		bits = make([]byte, areaSize*16)
		s.bitAreas[bitAreaCode] = bits
	}
	start := int(word)*16 + int(bitOffset)
	copy(bits[start:], values)
}
