// Package imageenc turns raw image input into the base64 payload and media
// type expected by multimodal model APIs.
package imageenc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vbonduro/eatlytic/internal/domain"
)

const defaultMediaType = "image/jpeg"

// Payload is the transport form of one image: base64 data without any
// data-URI prefix, plus its media type.
type Payload struct {
	Data      string
	MediaType string
}

// supportedTypes lists the media types the analysis backends accept.
var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// Supported reports whether mediaType is an image type the backends accept.
func Supported(mediaType string) bool {
	return supportedTypes[normalizeMediaType(mediaType)]
}

// Encode reads r to completion and encodes it. declaredMediaType is what the
// picker or camera reported and may be empty.
func Encode(r io.Reader, declaredMediaType string) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, domain.NewError(domain.KindEncoding, "read image", err)
	}
	return EncodeBytes(data, declaredMediaType)
}

// EncodeBytes encodes data. Input that is already a base64 data URI is
// decoded and re-encoded without its prefix, so Data is always canonical
// padded base64. The resolved media type must be a supported image type.
func EncodeBytes(data []byte, declaredMediaType string) (Payload, error) {
	raw, hint := data, ""
	if uri, ok := parseDataURI(data); ok {
		decoded, err := base64.StdEncoding.DecodeString(uri.payload)
		if err != nil {
			return Payload{}, domain.NewError(domain.KindEncoding, "decode data uri", err)
		}
		raw, hint = decoded, uri.mediaType
	}

	if len(raw) == 0 {
		return Payload{}, domain.Errorf(domain.KindEncoding, "", "image is empty")
	}
	mt := pickMediaType(declaredMediaType, hint, raw)
	if !Supported(mt) {
		return Payload{}, domain.Errorf(domain.KindEncoding, "", "unsupported media type %q", mt)
	}
	return Payload{
		Data:      base64.StdEncoding.EncodeToString(raw),
		MediaType: mt,
	}, nil
}

// Decode returns the raw bytes of p.
func (p Payload) Decode() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return raw, nil
}

type dataURI struct {
	mediaType string
	payload   string
}

// parseDataURI recognises data:<media type>;base64,<payload>. Only base64
// data URIs are accepted; anything else is treated as raw bytes.
func parseDataURI(data []byte) (dataURI, bool) {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("data:")) {
		return dataURI{}, false
	}
	comma := bytes.IndexByte(trimmed, ',')
	if comma < 0 {
		return dataURI{}, false
	}
	meta := string(trimmed[len("data:"):comma])
	if !strings.HasSuffix(meta, ";base64") {
		return dataURI{}, false
	}
	return dataURI{
		mediaType: strings.TrimSuffix(meta, ";base64"),
		payload:   strings.TrimSpace(string(trimmed[comma+1:])),
	}, true
}

// pickMediaType prefers the declared type, then the data-URI hint, then the
// type sniffed from the bytes.
func pickMediaType(declared, hint string, data []byte) string {
	if mt := normalizeMediaType(declared); mt != "" {
		return mt
	}
	if mt := normalizeMediaType(hint); mt != "" {
		return mt
	}
	if mt, ok := Sniff(data); ok {
		return mt
	}
	return defaultMediaType
}

// Sniff detects the image type from magic bytes. http.DetectContentType
// covers JPEG, PNG and GIF; WebP is checked separately because the stdlib
// sniffer does not know its signature.
func Sniff(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mt := http.DetectContentType(data)
	switch mt {
	case "image/jpeg", "image/png", "image/gif":
		return mt, true
	}
	return "", false
}

// isWebP reports whether data is a RIFF container with "WEBP" at offset 8.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

func normalizeMediaType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		return ""
	}
	if mt == "image/jpg" {
		return "image/jpeg"
	}
	return mt
}
