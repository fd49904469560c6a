// Package jsoncodec is the JSON codec for notifications, backed by sonic in
// encoding/json compatible mode.
package jsoncodec

import (
	"github.com/bytedance/sonic"
)

var (
	std    = sonic.ConfigStd
	strict = sonic.Config{
		EscapeHTML:            true,
		SortMapKeys:           true,
		CompactMarshaler:      true,
		CopyString:            true,
		ValidateString:        true,
		DisallowUnknownFields: true,
	}.Froze()
)

func Marshal(v any) ([]byte, error) {
	return std.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return std.Unmarshal(data, v)
}

// UnmarshalStrict rejects objects carrying fields v does not declare.
func UnmarshalStrict(data []byte, v any) error {
	return strict.Unmarshal(data, v)
}
