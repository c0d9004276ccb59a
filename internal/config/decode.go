package config

import (
	"github.com/go-viper/mapstructure/v2"
)

// Decode decodes the tree into v using `config` struct tags. Durations may be
// written as strings ("5s"); types implementing encoding.TextUnmarshaler are
// decoded from strings.
func (m *Map) Decode(v any) error {
	return DecodeValue(m.Plain(), v)
}

// DecodeValue decodes an arbitrary plain value (as produced by Map.Plain) into v.
func DecodeValue(in any, v any) error {
	if m, ok := in.(*Map); ok {
		in = m.Plain()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "config",
		Result:  v,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return DecodeError{Cause: err}
	}
	if err := dec.Decode(in); err != nil {
		return DecodeError{Cause: err}
	}
	return nil
}
