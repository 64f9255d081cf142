// Package content owns content-digest bookkeeping and the symlink
// target translation at read time. Writing the stored bytes themselves
// is a straight Tx.SetContent call from the planner, and reading them
// is a Store.FileByID lookup; the
// logic worth factoring out here is what a synthetic, tag-derived
// filesystem needs that a plain pass-through to a real file never
// would: an integrity digest, and rewriting a relative symlink target
// to account for how deep in the tag tree it was resolved.
package content

import (
	"strings"

	"github.com/opencontainers/go-digest"
)

// Digest returns the content-addressing digest of content, the same
// sha256 digest.Digest idiom distribution-distribution's blob store
// uses for its on-disk layout. pytagfs does not deduplicate storage by
// digest — files keep independent FileIds regardless of content
// equality — it only uses the digest to catch accidental corruption on
// read.
func Digest(data []byte) digest.Digest {
	return digest.FromBytes(data)
}

// Verify reports whether data still matches a previously recorded
// digest string. An empty want is treated as "no digest recorded yet"
// and always verifies true, so newly created zero-length files don't
// need a special case at the call site.
func Verify(data []byte, want string) bool {
	if want == "" {
		return true
	}
	return Digest(data).String() == want
}

// TranslateSymlinkTarget implements the depth-translation rule: a
// symlink whose stored target is relative is read back as if the mount
// root were the link's parent. Reading it from a path of depth d
// prefixes the target with d ascents of "..". An absolute target (or
// one already beginning with "/") is returned unchanged.
func TranslateSymlinkTarget(depth int, target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}
	if depth <= 0 {
		return target
	}
	return strings.Repeat("../", depth) + target
}
