package photo

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// allowedExt lists the upload extensions stored as profile photos.
var allowedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var (
	pngMagic   = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic  = []byte{0xff, 0xd8, 0xff}
	gif87Magic = []byte("GIF87a")
	gif89Magic = []byte("GIF89a")
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeGIF  = "image/gif"
)

// Accept reports whether filename carries an extension we store. Callers
// treat a rejected upload as "no image supplied".
func Accept(filename string) bool {
	return allowedExt[strings.ToLower(filepath.Ext(filename))]
}

// Encoded is the stored form of an uploaded photo.
type Encoded struct {
	Base64 string
	Hash   string // sha256 of the raw bytes, hex
}

// Encode hashes and base64-encodes the raw upload.
func Encode(raw []byte) Encoded {
	sum := sha256.Sum256(raw)
	return Encoded{
		Base64: base64.StdEncoding.EncodeToString(raw),
		Hash:   hex.EncodeToString(sum[:]),
	}
}

// Decode returns the raw bytes of a stored payload.
func Decode(b64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode photo payload: %w", err)
	}
	return raw, nil
}

// ContentType sniffs PNG, JPEG and GIF signatures. Anything else is served
// as JPEG.
func ContentType(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, pngMagic):
		return MimePNG
	case bytes.HasPrefix(raw, jpegMagic):
		return MimeJPEG
	case bytes.HasPrefix(raw, gif87Magic), bytes.HasPrefix(raw, gif89Magic):
		return MimeGIF
	}
	return MimeJPEG
}
