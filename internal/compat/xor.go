package compat

import (
	"unicode/utf8"

	"hubbub/internal/protocol"
	"hubbub/internal/protocol/param"
)

// xorBytes applies the legacy obfuscation: every byte XOR 0xFF. The
// transform is its own inverse.
func xorBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ 0xff
	}
	return out
}

// decodeTextFields decodes a request payload, transparently un-XOR-ing text
// fields. When the profile's XOR mode is off, the payload is probed: if the
// raw text fields are not valid UTF-8 but their XOR decoding is, the mode
// flips on and stays on for the connection.
func decodeTextFields(p *Profile, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return payload, nil
	}
	params, err := param.Decode(payload)
	if err != nil {
		return nil, err
	}
	if !hasTextField(params) {
		return payload, nil
	}

	shouldXOR := p.XOREnabled()
	if !shouldXOR {
		shouldXOR = detectXOR(params)
	}
	if !shouldXOR {
		return payload, nil
	}

	decoded, err := param.Encode(xorTextFields(params))
	if err != nil {
		return nil, err
	}
	p.enableXOR()
	return decoded, nil
}

// EncodeFor prepares an outbound payload for a specific client, applying
// the XOR text obfuscation when the connection runs in XOR mode. Server
// pushes go through here; replies are covered by the reply hook.
func EncodeFor(p *Profile, payload []byte) ([]byte, error) {
	return encodeTextFields(p, payload)
}

// encodeTextFields re-encodes a reply payload for XOR-mode clients. A no-op
// when the mode is off or no text fields are present.
func encodeTextFields(p *Profile, payload []byte) ([]byte, error) {
	if len(payload) == 0 || !p.XOREnabled() {
		return payload, nil
	}
	params, err := param.Decode(payload)
	if err != nil {
		return nil, err
	}
	if !hasTextField(params) {
		return payload, nil
	}
	return param.Encode(xorTextFields(params))
}

func hasTextField(params []param.Param) bool {
	for _, p := range params {
		if protocol.IsTextField(p.ID) {
			return true
		}
	}
	return false
}

// detectXOR reports whether the text fields look obfuscated: at least one
// raw text value is invalid UTF-8 while every XOR decoding is valid.
func detectXOR(params []param.Param) bool {
	sawText := false
	allValid := true
	allXORValid := true
	for _, p := range params {
		if !protocol.IsTextField(p.ID) {
			continue
		}
		sawText = true
		if !utf8.Valid(p.Value) {
			allValid = false
		}
		if !utf8.Valid(xorBytes(p.Value)) {
			allXORValid = false
		}
	}
	return sawText && !allValid && allXORValid
}

func xorTextFields(params []param.Param) []param.Param {
	out := make([]param.Param, len(params))
	for i, p := range params {
		if protocol.IsTextField(p.ID) {
			out[i] = param.Param{ID: p.ID, Value: xorBytes(p.Value)}
		} else {
			out[i] = p
		}
	}
	return out
}
