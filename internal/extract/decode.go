package extract

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText turns file bytes into UTF-8. A UTF-8 or UTF-16 byte order mark selects
// the decoding and is dropped; without one the content is read as UTF-8 and invalid
// sequences become U+FFFD.
func decodeText(content []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, content)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
