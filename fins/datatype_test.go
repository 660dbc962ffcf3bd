package fins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordsPerItem(t *testing.T) {
	cases := []struct {
		dt   DataType
		want int
	}{
		{INT16, 1}, {UINT16, 1}, {CHANNEL, 1}, {WORD, 1}, {BOOL, 1},
		{BCD2DEC, 1}, {BIN, 1}, {BITS, 1},
		{INT32, 2}, {UINT32, 2}, {UDINT, 2}, {FLOAT, 2},
		{INT64, 4}, {UINT64, 4}, {DOUBLE, 4},
	}
	for _, tc := range cases {
		got, ok := WordsPerItem(tc.dt)
		assert.True(t, ok, tc.dt)
		assert.Equal(t, tc.want, got, tc.dt)
	}

	_, ok := WordsPerItem(DataType("NOPE"))
	assert.False(t, ok)
}

func TestParseDataType_CaseInsensitive(t *testing.T) {
	dt, err := ParseDataType("int16")
	require.NoError(t, err)
	assert.Equal(t, INT16, dt)

	dt, err = ParseDataType("Float")
	require.NoError(t, err)
	assert.Equal(t, FLOAT, dt)

	_, err = ParseDataType("not-a-type")
	require.Error(t, err)
	assert.IsType(t, &DataError{}, err)
}

func TestDecodeValue_BCD2DEC(t *testing.T) {
	v, err := decodeBCDWord(0x1234)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), v)

	_, err = decodeBCDWord(0x12A4)
	require.Error(t, err)
	assert.IsType(t, &BCDBadDigitError{}, err)
}

func TestDecodeValue_Int64Spans4Words(t *testing.T) {
	words := []uint16{0x0001, 0x0002, 0x0003, 0x0004}
	v, err := decodeValue(INT64, words, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0x0001000200030004), v)
}

func TestDecodeValue_ChannelIsHexString(t *testing.T) {
	v, err := decodeValue(CHANNEL, []uint16{0x00AB}, nil)
	require.NoError(t, err)
	assert.Equal(t, "00AB", v)
}
