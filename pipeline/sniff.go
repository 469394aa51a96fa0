package pipeline

import (
	"bytes"
	"fmt"
	"strings"
)

// signature maps a leading byte pattern to the MIME type it proves.
type signature struct {
	mime   string
	offset int
	magic  []byte
}

// imageSignatures identify the formats the platform accepts as images.
// Ordered by specificity, first match wins.
var imageSignatures = []signature{
	{mime: "image/png", offset: 0, magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{mime: "image/jpeg", offset: 0, magic: []byte{0xFF, 0xD8}},
	{mime: "image/gif", offset: 0, magic: []byte("GIF")},
	{mime: "image/webp", offset: 8, magic: []byte("WEBP")}, // after RIFF header
}

// executableSignatures are never acceptable regardless of policy.
var executableSignatures = []signature{
	{mime: "application/x-executable", offset: 0, magic: []byte{0x7F, 'E', 'L', 'F'}},
	{mime: "application/x-msdownload", offset: 0, magic: []byte("MZ")},
	{mime: "application/x-mach-binary", offset: 0, magic: []byte{0xCF, 0xFA, 0xED, 0xFE}}, // 64-bit
	{mime: "application/x-mach-binary", offset: 0, magic: []byte{0xCE, 0xFA, 0xED, 0xFE}}, // 32-bit
	{mime: "application/x-mach-binary", offset: 0, magic: []byte{0xFE, 0xED, 0xFA, 0xCF}}, // big endian
	{mime: "application/x-mach-binary", offset: 0, magic: []byte{0xFE, 0xED, 0xFA, 0xCE}},
}

// headerMarkers are textual payload openings that mark active content.
// Only the leading bytes are inspected here; the full-payload scan is the
// threat scanner's job and is policy gated, this one is not.
var headerMarkers = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onerror=",
	"onload=",
	"eval(",
}

const headerMarkerWindow = 50

// sniffContent determines the true format of the payload from its leading
// bytes and cross-checks it against the declared MIME type. Structural
// threats (executable headers, script markers in the header) fail here
// unconditionally.
func sniffContent(data []byte, declaredMime string) finding {
	for _, sig := range executableSignatures {
		if matchSignature(data, sig) {
			return finding{
				kind:         findingInvalid,
				reason:       fmt.Sprintf("executable content detected (%s)", sig.mime),
				detectedMime: sig.mime,
			}
		}
	}

	window := data
	if len(window) > headerMarkerWindow {
		window = window[:headerMarkerWindow]
	}
	lower := strings.ToLower(string(window))
	for _, marker := range headerMarkers {
		if strings.Contains(lower, marker) {
			return finding{
				kind:   findingInvalid,
				reason: fmt.Sprintf("dangerous marker %q in file header", marker),
			}
		}
	}

	detected := ""
	for _, sig := range imageSignatures {
		if matchSignature(data, sig) {
			detected = sig.mime
			break
		}
	}

	// Unknown signatures are permissive: non-image formats (pdf, zip, text)
	// are vouched for by the declared type alone.
	if detected == "" {
		return finding{kind: findingValid}
	}

	if !mimeEquivalent(detected, declaredMime) {
		return finding{
			kind:         findingInvalid,
			reason:       fmt.Sprintf("declared type %q does not match detected type %q", declaredMime, detected),
			detectedMime: detected,
		}
	}

	return finding{kind: findingValid, detectedMime: detected}
}

func matchSignature(data []byte, sig signature) bool {
	end := sig.offset + len(sig.magic)
	if end > len(data) {
		return false
	}
	return bytes.Equal(data[sig.offset:end], sig.magic)
}

// mimeEquivalent treats image/jpeg and image/jpg as aliases; everything else
// must match exactly.
func mimeEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	return isJpegMime(a) && isJpegMime(b)
}

func isJpegMime(m string) bool {
	return m == "image/jpeg" || m == "image/jpg"
}
