package api

import (
	"encoding/hex"
	"fmt"
)

// GUID is a 128-bit identifier keying private data attached to an Object.
//
// GUIDs are compared byte for byte. Two collaborators that pick the same GUID
// share one private-data entry and overwrite each other.
type GUID [16]byte

// ParseGUID parses the canonical 8-4-4-4-12 hexadecimal form, with or
// without surrounding braces.
func ParseGUID(s string) (GUID, error) {
	var g GUID
	if len(s) == 38 && s[0] == '{' && s[37] == '}' {
		s = s[1:37]
	}
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return g, fmt.Errorf("interpose: malformed GUID %q", s)
	}
	compact := s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:36]
	if _, err := hex.Decode(g[:], []byte(compact)); err != nil {
		return GUID{}, fmt.Errorf("interpose: malformed GUID %q: %w", s, err)
	}
	return g, nil
}

// MustParseGUID is like ParseGUID but panics on malformed input. It is meant
// for package-level GUID variables.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// String returns the canonical lowercase form.
func (g GUID) String() string {
	h := hex.EncodeToString(g[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}
