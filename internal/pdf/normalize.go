package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var (
	datePattern = regexp.MustCompile(`/(?:CreationDate|ModDate)\s*\(D:([^)]*)\)`)
	idPattern   = regexp.MustCompile(`/ID\s*\[\s*<([0-9A-Fa-f]*)>\s*<([0-9A-Fa-f]*)>\s*\]`)
)

// fixedDate supplies the digits written over embedded timestamps.
const fixedDate = "19700101000000000000"

// Normalize rewrites the creation/modification dates and the trailer
// document ID so identical input prints to identical bytes. Every
// replacement keeps its length, so xref offsets stay valid.
func Normalize(data []byte) []byte {
	out := bytes.Clone(data)

	for _, loc := range datePattern.FindAllSubmatchIndex(out, -1) {
		start, end := loc[2], loc[3]
		d := 0
		for i := start; i < end; i++ {
			if out[i] >= '0' && out[i] <= '9' {
				out[i] = fixedDate[d%len(fixedDate)]
				d++
			}
		}
	}

	ids := idPattern.FindAllSubmatchIndex(out, -1)
	if len(ids) == 0 {
		return out
	}
	for _, loc := range ids {
		fill(out[loc[2]:loc[3]], "0")
		fill(out[loc[4]:loc[5]], "0")
	}
	sum := sha256.Sum256(out)
	digest := hex.EncodeToString(sum[:])
	for _, loc := range ids {
		fill(out[loc[2]:loc[3]], digest)
		fill(out[loc[4]:loc[5]], digest)
	}
	return out
}

func fill(dst []byte, pattern string) {
	for i := range dst {
		dst[i] = pattern[i%len(pattern)]
	}
}
