package domain

import (
	"strconv"
	"strings"
)

// blobNamespace roots every clipboard blob under a fixed prefix so the object
// store can host other data alongside.
const blobNamespace = "/data/clipboards"

// shardWidth is the fixed hex width of the record identifier in blob paths.
// 14 hex digits cover 56 bits of identifier space and keep the shard depth
// stable regardless of identifier magnitude.
const shardWidth = 14

// BlobPath derives the object path for a clip's payload from the owning
// record identifier and the clip timestamp. The identifier is rendered as
// lowercase hex, zero-padded to shardWidth, and split into two-digit groups
// so blobs spread evenly across store partitions. Pure and deterministic;
// recordID must be non-negative.
func BlobPath(recordID, timestamp int64) string {
	hex := strconv.FormatInt(recordID, 16)
	if len(hex) < shardWidth {
		hex = strings.Repeat("0", shardWidth-len(hex)) + hex
	} else if len(hex)%2 == 1 {
		// identifiers beyond 56 bits still shard into whole 2-digit groups
		hex = "0" + hex
	}
	var b strings.Builder
	b.WriteString(blobNamespace)
	for i := 0; i < len(hex); i += 2 {
		b.WriteByte('/')
		b.WriteString(hex[i : i+2])
	}
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	return b.String()
}
