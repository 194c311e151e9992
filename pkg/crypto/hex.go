package crypto

import "encoding/hex"

// HexEncode returns the lowercase hex encoding of b. Public keys travel in
// hex form inside Hello and Redirect payloads.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecode decodes a hex string produced by HexEncode.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
