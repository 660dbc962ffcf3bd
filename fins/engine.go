package fins

import "fmt"

// ResultStatus is the terminal state of a C5 operation (spec.md §4.5's
// state machine: idle -> sending -> awaiting_response -> decoded|errored|timed_out,
// collapsed here to the two outcomes callers observe).
type ResultStatus int

const (
	StatusSuccess ResultStatus = iota
	StatusError
)

// MaxChunkSize and MaxReadSize are the protocol limits from
// udp_connection.py / spec.md §4.5.
const (
	MaxChunkSize = 990
	MaxReadSize  = 65535
)

// ReadResult is the structured result every C5 operation returns. It never
// throws across the boundary (spec.md §4.5/§7) — errors are carried in
// Status/Message/Err.
type ReadResult struct {
	Status  ResultStatus
	Message string
	Err     error

	Address string
	Value   any   // populated by Read
	Items   []any // populated by BatchRead/MultipleRead, one entry per item; nil entries mark per-item failures

	ChunksUsed int
}

func errResult(addr string, err error) ReadResult {
	return ReadResult{Status: StatusError, Message: err.Error(), Err: err, Address: addr}
}

// Engine is the C5 Request Engine: it chunks oversized reads, issues
// single/batched/multiple-area reads through a Client, and aggregates
// partial results. Grounded throughout on
// OMRON_FINS_PROTOCOL/Infrastructure/udp_connection.py's read/batch_read/
// multiple_read/_calculate_read_chunks.
type Engine struct {
	client *Client
}

func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

// chunk is one (offset, size) pair within a multi-chunk read.
type chunk struct {
	offset uint16
	size   uint16
}

// calculateChunks splits totalWords into <= MaxChunkSize pieces, matching
// udp_connection.py's _calculate_read_chunks.
func calculateChunks(totalWords int) []chunk {
	var chunks []chunk
	remaining := totalWords
	offset := 0
	for remaining > 0 {
		size := remaining
		if size > MaxChunkSize {
			size = MaxChunkSize
		}
		chunks = append(chunks, chunk{offset: uint16(offset), size: uint16(size)})
		offset += size
		remaining -= size
	}
	return chunks
}

// Read performs a single-address read (spec.md §4.5 "Single read").
func (e *Engine) Read(addrStr string, dt DataType) ReadResult {
	parsed, warn, err := ParseAddress(addrStr, 0)
	if err != nil {
		return errResult(addrStr, err)
	}
	_ = warn // surfaced by the Poller at plan-build time, not here

	wordsPerItem, ok := WordsPerItem(dt)
	if !ok {
		return errResult(addrStr, &DataError{Reason: fmt.Sprintf("invalid type %q", dt)})
	}

	totalWords := wordsPerItem
	if parsed.Kind == KindBit {
		totalWords = 1
	}

	chunks := calculateChunks(totalWords)
	var acc []byte
	for i, c := range chunks {
		chunkAddr := parsed
		chunkAddr.WordOffset = parsed.WordOffset + c.offset
		mem := chunkAddr.toMemoryAddress()

		header := e.client.nextHeader()
		frame := buildReadFrame(header, mem, c.size)
		resp, err := e.client.sendFrame(frame)
		if err != nil {
			// Transport-level failure: abort with whatever was accumulated.
			r := errResult(addrStr, err)
			r.ChunksUsed = i
			return r
		}
		if err := checkEndCode(resp.endCode); err != nil {
			// Protocol error: abort with partial data, do not attempt further chunks.
			r := errResult(addrStr, err)
			r.ChunksUsed = i
			return r
		}
		acc = append(acc, resp.data...)
	}

	if len(acc)%2 != 0 {
		acc = append(acc, 0)
	}
	words := bytesToWords(acc)

	var bit *uint8
	if parsed.Kind == KindBit {
		b := parsed.Bit
		bit = &b
	}
	value, err := decodeValue(dt, words, bit)
	if err != nil {
		r := errResult(addrStr, err)
		r.ChunksUsed = len(chunks)
		return r
	}

	return ReadResult{
		Status:     StatusSuccess,
		Address:    addrStr,
		Value:      value,
		ChunksUsed: len(chunks),
	}
}

// BatchRead reads n consecutive items of the same DataType starting at
// addrStr (spec.md §4.5 "Batch read"). On mid-stream failure it returns the
// items successfully decoded so far with Status=StatusError, matching
// udp_connection.py's _handle_batch_read_error.
func (e *Engine) BatchRead(addrStr string, dt DataType, n int) ReadResult {
	if n <= 0 {
		return errResult(addrStr, &DataError{Reason: "empty"})
	}
	if n > MaxReadSize {
		return errResult(addrStr, &DataError{Reason: "too large"})
	}

	parsed, _, err := ParseAddress(addrStr, 0)
	if err != nil {
		return errResult(addrStr, err)
	}
	wordsPerItem, ok := WordsPerItem(dt)
	if !ok {
		return errResult(addrStr, &DataError{Reason: fmt.Sprintf("invalid type %q", dt)})
	}

	totalWords := n * wordsPerItem
	chunks := calculateChunks(totalWords)

	var acc []byte
	var failure error
	for _, c := range chunks {
		chunkAddr := parsed
		chunkAddr.WordOffset = parsed.WordOffset + c.offset
		mem := chunkAddr.toMemoryAddress()

		header := e.client.nextHeader()
		frame := buildReadFrame(header, mem, c.size)
		resp, err := e.client.sendFrame(frame)
		if err != nil {
			failure = err
			break
		}
		if err := checkEndCode(resp.endCode); err != nil {
			failure = err
			break
		}
		acc = append(acc, resp.data...)
	}

	// Decode as many complete items as the accumulated bytes allow, even on
	// partial failure.
	itemBytes := wordsPerItem * 2
	completeItems := len(acc) / itemBytes
	items := make([]any, n)
	for i := 0; i < completeItems && i < n; i++ {
		words := bytesToWords(acc[i*itemBytes : (i+1)*itemBytes])
		v, err := decodeValue(dt, words, nil)
		if err != nil {
			items[i] = nil
			continue
		}
		items[i] = v
	}

	if failure != nil {
		return ReadResult{
			Status:     StatusError,
			Message:    failure.Error(),
			Err:        failure,
			Address:    addrStr,
			Items:      items,
			ChunksUsed: len(chunks),
		}
	}

	return ReadResult{
		Status:     StatusSuccess,
		Address:    addrStr,
		Items:      items,
		ChunksUsed: len(chunks),
	}
}

// MultipleReadRequest is one entry in a multiple_read call.
type MultipleReadRequest struct {
	Address  string
	DataType DataType
}

// MultipleRead emits one 0x0104 request covering up to 20 single-word
// addresses (spec.md §4.5 "Multiple read"). The response is split
// sequentially by each entry's byte width and decoded per entry.
func (e *Engine) MultipleRead(reqs []MultipleReadRequest) ReadResult {
	if len(reqs) == 0 {
		return errResult("", &DataError{Reason: "empty"})
	}
	if len(reqs) > 20 {
		return errResult("", &DataError{Reason: "too large"})
	}

	entries := make([]multipleReadEntry, 0, len(reqs))
	parsedAddrs := make([]ParsedAddress, 0, len(reqs))
	itemWidths := make([]int, 0, len(reqs))

	for _, r := range reqs {
		parsed, _, err := ParseAddress(r.Address, 0)
		if err != nil {
			return errResult(r.Address, err)
		}
		wpi, ok := WordsPerItem(r.DataType)
		if !ok {
			return errResult(r.Address, &DataError{Reason: fmt.Sprintf("invalid type %q", r.DataType)})
		}
		if wpi != 1 {
			return errResult(r.Address, &DataError{Reason: "multiple_read only supports single-word items"})
		}
		entries = append(entries, multipleReadEntry{addr: parsed.toMemoryAddress()})
		parsedAddrs = append(parsedAddrs, parsed)
		itemWidths = append(itemWidths, wpi)
	}

	header := e.client.nextHeader()
	frame := buildMultipleReadFrame(header, entries)
	resp, err := e.client.sendFrame(frame)
	if err != nil {
		return ReadResult{Status: StatusError, Message: err.Error(), Err: err, Items: make([]any, len(reqs))}
	}
	if err := checkEndCode(resp.endCode); err != nil {
		return ReadResult{Status: StatusError, Message: err.Error(), Err: err, Items: make([]any, len(reqs))}
	}

	// Each record in the response is area_code(1) || value_bytes(words*2),
	// matching spec.md's seed scenario 3 (`82 12 34 B1 00 01` decodes to two
	// entries, each with its area code byte still attached).
	items := make([]any, len(reqs))
	offset := 0
	for i, req := range reqs {
		itemBytes := 1 + itemWidths[i]*2
		if offset+itemBytes > len(resp.data) {
			items[i] = nil
			continue
		}
		valueBytes := resp.data[offset+1 : offset+itemBytes]
		words := bytesToWords(valueBytes)
		var bit *uint8
		if parsedAddrs[i].Kind == KindBit {
			b := parsedAddrs[i].Bit
			bit = &b
		}
		v, err := decodeValue(req.DataType, words, bit)
		if err != nil {
			items[i] = nil
		} else {
			items[i] = v
		}
		offset += itemBytes
	}

	return ReadResult{Status: StatusSuccess, Items: items}
}
