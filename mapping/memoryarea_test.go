package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupArea_WordAndBitCodesDistinct(t *testing.T) {
	cases := []struct {
		name     string
		wantWord byte
		wantBit  byte
	}{
		{"CIO", 0xB0, 0x30},
		{"WORK", 0xB1, 0x31},
		{"HOLDING", 0xB2, 0x32},
		{"AUXILIARY", 0xB3, 0x33},
		{"DATA_MEMORY", 0x82, 0x02},
		{"TIMER", 0x89, 0x09},
		{"COUNTER", 0x89, 0x09},
	}
	for _, tc := range cases {
		area, ok := LookupArea(tc.name)
		require.True(t, ok, tc.name)
		assert.Equal(t, tc.wantWord, area.Word, "%s word code", tc.name)
		assert.Equal(t, tc.wantBit, area.Bit, "%s bit code", tc.name)
		assert.NotEqual(t, area.Word, area.Bit, "%s word/bit codes must differ", tc.name)
	}
}

func TestLookupArea_EMBankRangesDontCollide(t *testing.T) {
	single, ok := LookupArea("EMF")
	require.True(t, ok)
	double, ok := LookupArea("EM16")
	require.True(t, ok)

	assert.NotEqual(t, single.Word, double.Word)
	assert.NotEqual(t, single.Bit, double.Bit)
}

func TestLookupArea_Unknown(t *testing.T) {
	_, ok := LookupArea("NOT_AN_AREA")
	assert.False(t, ok)
}

func TestCounterWordOffset(t *testing.T) {
	assert.Equal(t, uint16(0x0800), CounterWordOffset())
}
