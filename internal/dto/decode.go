// Package dto decodes loosely typed inputs. YAML config documents and
// MCP tool arguments arrive as maps; mapstructure maps them onto tagged
// structs.
package dto

import (
	"github.com/mitchellh/mapstructure"
)

// Decode maps input onto a mapstructure-tagged struct. Weak typing
// absorbs the string/number drift YAML and JSON callers produce, and
// duration fields accept strings like "30m".
func Decode(input, out any) error {
	dec, err := decoder(out, false)
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// DecodeStrict is Decode with unknown keys rejected. Config files use
// it so a typo fails loudly instead of silently defaulting.
func DecodeStrict(input, out any) error {
	dec, err := decoder(out, true)
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decoder(out any, strict bool) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           out,
	})
}
