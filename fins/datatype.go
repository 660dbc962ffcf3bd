package fins

import "fmt"

// DataType is a semantic tag governing how many consecutive words form one
// item and how the item's raw bytes are interpreted. Grounded on
// data_type_mapping.py's DATA_TYPE_MAPPING/words_per_item table and spec.md
// §3/§4.3.
type DataType string

const (
	INT16    DataType = "INT16"
	UINT16   DataType = "UINT16"
	CHANNEL  DataType = "CHANNEL"
	WORD     DataType = "WORD"
	BOOL     DataType = "BOOL"
	BCD2DEC  DataType = "BCD2DEC"
	BIN      DataType = "BIN"
	BITS     DataType = "BITS"
	INT32    DataType = "INT32"
	UINT32   DataType = "UINT32"
	UDINT    DataType = "UDINT"
	FLOAT    DataType = "FLOAT"
	INT64    DataType = "INT64"
	UINT64   DataType = "UINT64"
	DOUBLE   DataType = "DOUBLE"
)

// wordsPerItem mirrors data_type_mapping.py's words_per_item dict exactly.
var wordsPerItem = map[DataType]int{
	INT16:   1,
	UINT16:  1,
	CHANNEL: 1,
	WORD:    1,
	BOOL:    1,
	BCD2DEC: 1,
	BIN:     1,
	BITS:    1,
	INT32:   2,
	UINT32:  2,
	UDINT:   2,
	FLOAT:   2,
	INT64:   4,
	UINT64:  4,
	DOUBLE:  4,
}

// WordsPerItem returns the number of 16-bit words one item of dt occupies,
// and false if dt is not a recognized type (spec.md §4.5 "unknown DataType").
func WordsPerItem(dt DataType) (int, bool) {
	n, ok := wordsPerItem[dt]
	return n, ok
}

// ParseDataType normalizes a configuration string (case-insensitive) into a
// DataType, validating it against the known table.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(normalizeUpper(s))
	if _, ok := wordsPerItem[dt]; !ok {
		return "", &DataError{Reason: fmt.Sprintf("invalid type %q", s)}
	}
	return dt, nil
}

func normalizeUpper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
