package common

import (
	"encoding/hex"
	"fmt"
	"strings"

	rainbowLib "rainbow-table/rainbow"
)

// ParseDigest decodes a hex digest and checks it has size bytes.
// A size of zero skips the length check.
func ParseDigest(text string, size int) (rainbowLib.Digest, error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("unable to parse digest: %w", err)
	}
	if size > 0 && len(decoded) != size {
		return nil, &rainbowLib.ConfigurationError{
			Field: "digest",
			Msg:   fmt.Sprintf("digest is %d bytes, want %d", len(decoded), size),
		}
	}
	return rainbowLib.Digest(decoded), nil
}
