// Package textenc classifies raw file buffers as binary or text and decodes
// text buffers into canonical UTF-8 strings. Decoding tries strict UTF-8
// first, then falls back to Windows-1252; either way, output carrying too
// many control characters is rejected so that binary data which happens to
// decode is not mistaken for text.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ClassifyWindow is the number of leading bytes inspected for NUL bytes.
const ClassifyWindow = 8 * 1024

// ControlRatioLimit is the maximum tolerated ratio of control characters
// (excluding \n, \r, \t) in decoded text.
const ControlRatioLimit = 0.02

// ErrBinary is returned by Decode when the buffer was classified as binary.
var ErrBinary = errors.New("binary content")

// Encoding identifies which decoder produced the text.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
)

// ControlRatioError reports decoded output rejected for carrying too many
// control characters.
type ControlRatioError struct {
	Ratio    float64
	Encoding Encoding
}

func (e *ControlRatioError) Error() string {
	return fmt.Sprintf("too many control characters: %.2f%% after %s decode", e.Ratio*100, e.Encoding)
}

// IsBinary reports whether the buffer looks like binary content. Only the
// first ClassifyWindow bytes are scanned; a single NUL byte in that window
// classifies the whole buffer as binary.
func IsBinary(buf []byte) bool {
	window := buf
	if len(window) > ClassifyWindow {
		window = window[:ClassifyWindow]
	}
	return bytes.IndexByte(window, 0) >= 0
}

// Decode converts a text buffer to a canonical string. Strict UTF-8 is
// attempted first; on failure the same bytes are re-decoded as Windows-1252,
// which is total over all byte values. Whichever decoder succeeds, the
// result is rejected with a ControlRatioError when control characters make
// up ControlRatioLimit or more of it.
func Decode(buf []byte) (string, Encoding, error) {
	if len(buf) == 0 {
		return "", EncodingUTF8, nil
	}

	var text string
	var enc Encoding

	if utf8.Valid(buf) {
		text = string(buf)
		enc = EncodingUTF8
	} else {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(buf)
		if err != nil {
			return "", EncodingWindows1252, fmt.Errorf("windows-1252 decode failed: %w", err)
		}
		text = string(decoded)
		enc = EncodingWindows1252
	}

	ratio := controlRatio(text)
	if ratio >= ControlRatioLimit {
		return "", enc, &ControlRatioError{Ratio: ratio, Encoding: enc}
	}
	return text, enc, nil
}

// controlRatio computes the share of control characters in the text,
// treating \n, \r and \t as ordinary whitespace.
func controlRatio(text string) float64 {
	var total, control int
	for _, r := range text {
		total++
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			control++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(control) / float64(total)
}
