// Package cos ("common os"/"common small stuff") collects small helpers
// shared by every package.
package cos

import (
	"strconv"

	"github.com/OneOfOne/xxhash"
)

// Digest is a content fingerprint used by the text store's materialisation
// cache and by text/checkpoint to verify a restored shard.
type Digest uint64

// Sum64 hashes b with xxhash.
func Sum64(b []byte) Digest {
	return Digest(xxhash.Checksum64(b))
}

func (d Digest) String() string {
	return strconv.FormatUint(uint64(d), 16)
}

// BHead truncates a byte slice for log-friendly previews, mirroring
// cos.BHead(bt) in ais/prxs3.go.
func BHead(b []byte) string {
	const max = 64
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
