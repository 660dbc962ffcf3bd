package fins

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayakas1997/finsbridge/mapping"
	"github.com/vinayakas1997/finsbridge/simulator"
)

func startSimulator(t *testing.T) (*simulator.Server, Address) {
	t.Helper()
	sim, err := simulator.New("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(sim.Close)

	udpAddr := sim.Addr()
	plcAddr, err := NewAddress(udpAddr.IP.String(), udpAddr.Port, 0, 10, 0)
	require.NoError(t, err)
	return sim, plcAddr
}

func newTestClient(t *testing.T, plcAddr Address) *Client {
	t.Helper()
	localAddr, err := NewAddress("0.0.0.0", 9600, 0, 2, 0)
	require.NoError(t, err)

	c, err := NewClient(localAddr, plcAddr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEngineRead_DataMemoryINT16(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	sim.SeedWords(0x82, 100, []uint16{1234})

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	result := e.Read("D100", INT16)
	require.Equal(t, StatusSuccess, result.Status, result.Message)
	assert.Equal(t, int16(1234), result.Value)
	assert.Equal(t, 1, result.ChunksUsed)
}

func TestEngineRead_Float32SpansTwoWords(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	// 3.25 as big-endian word pair, word0 = MSB half.
	sim.SeedWords(0x82, 200, []uint16{0x4050, 0x0000})

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	result := e.Read("D200", FLOAT)
	require.Equal(t, StatusSuccess, result.Status, result.Message)
	assert.InDelta(t, 3.25, result.Value, 0.0001)
}

func TestEngineRead_BoolBit(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	sim.SeedBits(0x02, 10, 3, []byte{1})

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	result := e.Read("D10.3", BOOL)
	require.Equal(t, StatusSuccess, result.Status, result.Message)
	assert.Equal(t, true, result.Value)
}

func TestEngineBatchRead_Consecutive(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	sim.SeedWords(0x82, 300, []uint16{10, 20, 30, 40, 50})

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	result := e.BatchRead("D300", UINT16, 5)
	require.Equal(t, StatusSuccess, result.Status, result.Message)
	require.Len(t, result.Items, 5)
	for i, want := range []uint16{10, 20, 30, 40, 50} {
		assert.Equal(t, want, result.Items[i])
	}
}

// TestEngineMultipleRead_MixedAreas mirrors spec.md's seed scenario #3: a multiple read
// of {D100:INT16, W0:INT16} encodes the work-area word code as 0xB1.
func TestEngineMultipleRead_MixedAreas(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	sim.SeedWords(0x82, 100, []uint16{64}) // D100
	sim.SeedWords(0xB1, 0, []uint16{7})    // W0

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	result := e.MultipleRead([]MultipleReadRequest{
		{Address: "D100", DataType: INT16},
		{Address: "W0", DataType: INT16},
	})
	require.Equal(t, StatusSuccess, result.Status, result.Message)
	require.Len(t, result.Items, 2)
	assert.Equal(t, int16(64), result.Items[0])
	assert.Equal(t, int16(7), result.Items[1])
}

func TestEngineRead_UnknownAddressPrefix(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	_ = sim

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	result := e.Read("X100", INT16)
	assert.Equal(t, StatusError, result.Status)
	assert.IsType(t, &AddressError{}, result.Err)
}

func TestEngineRead_AddressRangeExceeded(t *testing.T) {
	sim, plcAddr := startSimulator(t)
	sim.SeedWords(0x82, 0, []uint16{1}) // creates the DM area buffer (32768 words)

	c := newTestClient(t, plcAddr)
	e := NewEngine(c)

	// D32767 + the second word of an INT32 read falls one past the buffer.
	result := e.Read("D32767", INT32)
	assert.Equal(t, StatusError, result.Status)
	assert.IsType(t, &ProtocolError{}, result.Err)
}

func TestClientDiagnostics(t *testing.T) {
	_, plcAddr := startSimulator(t)
	c := newTestClient(t, plcAddr)

	t.Run("status read", func(t *testing.T) {
		status, err := c.CPUUnitStatusRead()
		require.NoError(t, err)
		assert.Equal(t, mapping.StatusRun, status.Status)
		assert.True(t, status.IsRunning())
	})

	t.Run("clock read", func(t *testing.T) {
		now, err := c.ClockRead()
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), now, 2*time.Second)
	})

	t.Run("unit data read", func(t *testing.T) {
		details, err := c.CPUUnitDataRead()
		require.NoError(t, err)
		assert.NotEmpty(t, details.ControllerModel)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, c.Ping())
	})
}

func TestClientConnected(t *testing.T) {
	_, plcAddr := startSimulator(t)
	c := newTestClient(t, plcAddr)

	assert.True(t, c.Connected())
	require.NoError(t, c.Close())
	assert.False(t, c.Connected())
}
