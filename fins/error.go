package fins

import (
	"fmt"
	"time"
)

// Error kinds named by spec.md §7. Each is a distinct struct (not a sentinel
// value) satisfying error, following the teacher's error.go pattern
// (ResponseTimeoutError, BCDBadDigitError, ...).

// AddressError covers everything the address parser (C2) can reject: empty
// input, unknown prefix, out-of-range bit index, malformed number, unknown
// EM bank.
type AddressError struct {
	Input  string
	Reason string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address error: %q: %s", e.Input, e.Reason)
}

// DataError covers request-engine-level rejections: empty inputs, unknown
// DataType, oversized read counts, oversized multiple-read groups.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s", e.Reason)
}

// TimeoutError is surfaced by the transport once MAX_RETRIES is exhausted
// without a response.
type TimeoutError struct {
	Duration time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %d attempt(s), last deadline %s", e.Attempts, e.Duration)
}

// ConnectionError is surfaced by the transport on a terminal socket-level
// failure (after retries), matching the teacher's ResponseTimeoutError
// shape but for send/recv errors rather than a response timeout.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ProtocolError wraps a non-success FINS end code (spec.md §4.3/§7). It is
// never retried.
type ProtocolError struct {
	EndCode uint16
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: end code 0x%04X: %s", e.EndCode, e.Message)
}

// IncompatibleMemoryAreaError: kept from the teacher almost verbatim — the
// memory area looked up for an address does not support the operation
// requested against it (e.g. a bit read against an area with HasBit=false).
type IncompatibleMemoryAreaError struct {
	Area byte
}

func (e *IncompatibleMemoryAreaError) Error() string {
	return fmt.Sprintf("memory area 0x%X does not support this access width", e.Area)
}

// BCD decoding errors — kept from the teacher's error.go.

type BCDBadDigitError struct {
	Nibble byte
	Word   uint16
}

func (e *BCDBadDigitError) Error() string {
	return fmt.Sprintf("bad BCD nibble %d in word 0x%04X", e.Nibble, e.Word)
}

type BCDError struct {
	Msg string
}

func (e *BCDError) Error() string {
	return fmt.Sprintf("BCD error: %s", e.Msg)
}

// TooManyErrorsError is raised by the Poller (C6) when its cumulative
// failed_to_read counter exceeds THRESHOLD; it is the one error C6
// propagates rather than structuring into a result (spec.md §7's "throws
// only to terminate its own loop upon TooManyErrors"), matching
// original_source/main.py's failed_to_read/THRESHOLD self-termination.
type TooManyErrorsError struct {
	PLCName      string
	FailureCount int
}

func (e *TooManyErrorsError) Error() string {
	return fmt.Sprintf("%s: too many failed reads (%d), giving up", e.PLCName, e.FailureCount)
}
