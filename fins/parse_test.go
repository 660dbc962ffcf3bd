package fins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_WordForms(t *testing.T) {
	cases := []struct {
		name       string
		addr       string
		wantArea   string
		wantCode   byte
		wantOffset uint16
	}{
		{"CIO bare digits", "0", "CIO", 0xB0, 0},
		{"DM", "D100", "DATA_MEMORY", 0x82, 100},
		{"DM max", "D65535", "DATA_MEMORY", 0x82, 65535},
		{"Work", "W0", "WORK", 0xB1, 0},
		{"Holding", "H12", "HOLDING", 0xB2, 12},
		{"Auxiliary", "A5", "AUXILIARY", 0xB3, 5},
		{"Timer", "T3", "TIMER", 0x89, 3},
		{"EM single hex bank", "EA050", "EMA", 0xA0 + 0xA, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _, err := ParseAddress(tc.addr, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.wantArea, p.AreaName)
			assert.Equal(t, tc.wantCode, p.AreaCode)
			assert.Equal(t, tc.wantOffset, p.WordOffset)
			assert.Equal(t, KindWord, p.Kind)
		})
	}
}

func TestParseAddress_BitForm(t *testing.T) {
	p, warn, err := ParseAddress("0.01", 0)
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, "CIO", p.AreaName)
	assert.Equal(t, byte(0x30), p.AreaCode)
	assert.Equal(t, uint16(0), p.WordOffset)
	assert.Equal(t, uint8(1), p.Bit)
	assert.Equal(t, KindBit, p.Kind)
}

func TestParseAddress_CounterWordOffset(t *testing.T) {
	p, _, err := ParseAddress("C10", 0)
	require.NoError(t, err)
	assert.Equal(t, "COUNTER", p.AreaName)
	assert.Equal(t, uint16(10+0x0800), p.WordOffset)

	// The flag (bit) form does not carry the +0x0800 quirk.
	pb, _, err := ParseAddress("C10.0", 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), pb.WordOffset)
}

func TestParseAddress_ExtraOffsetIsLinear(t *testing.T) {
	base, _, err := ParseAddress("D100", 0)
	require.NoError(t, err)
	offset, _, err := ParseAddress("D100", 5)
	require.NoError(t, err)
	assert.Equal(t, base.WordOffset+5, offset.WordOffset)
}

func TestParseAddress_InvalidBitIndex(t *testing.T) {
	_, _, err := ParseAddress("D100.16", 0)
	require.Error(t, err)
	assert.IsType(t, &AddressError{}, err)
}

func TestParseAddress_UnknownPrefix(t *testing.T) {
	_, _, err := ParseAddress("X100", 0)
	require.Error(t, err)
	assert.IsType(t, &AddressError{}, err)
}

func TestParseAddress_EMTwoDigitBankExplicit(t *testing.T) {
	p, warn, err := ParseAddress("EM10100", 0)
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, "EM10", p.AreaName)
	assert.Equal(t, uint16(100), p.WordOffset)
}

// TestParseAddress_AmbiguousEBankSurfacesWarning exercises spec.md §9's
// documented resolution: a tail whose first two characters form a valid
// double-digit bank and whose remainder is long enough resolves as the
// two-digit bank, with a ParseWarning surfacing the road not taken.
func TestParseAddress_AmbiguousEBankSurfacesWarning(t *testing.T) {
	p, warn, err := ParseAddress("E10123", 0)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, "EM10", p.AreaName)
	assert.Equal(t, uint16(123), p.WordOffset)
}

func TestParseAddress_EmptyInput(t *testing.T) {
	_, _, err := ParseAddress("", 0)
	require.Error(t, err)
	assert.IsType(t, &AddressError{}, err)
}
