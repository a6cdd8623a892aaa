package imageprocessing

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const jpegDataURIPrefix = "data:image/jpeg;base64,"

// EncodeDataURI wraps JPEG bytes as a data:image/jpeg;base64 string for text storage.
func EncodeDataURI(jpegData []byte) string {
	return jpegDataURIPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// DecodeDataURI returns the JPEG bytes of a value produced by EncodeDataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, jpegDataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("not a JPEG data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}
