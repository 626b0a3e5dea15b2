package scrobble

import (
	"crypto/md5" //nolint:gosec // the 1.1 protocol is defined over md5
	"encoding/hex"
)

// DigestPassword returns the hex md5 digest of a plain password. Only
// the digest is ever stored or used; the protocol never sees the
// password itself.
func DigestPassword(password string) string {
	sum := md5.Sum([]byte(password)) //nolint:gosec // protocol-mandated
	return hex.EncodeToString(sum[:])
}

// sessionResponse computes the per-session authentication response:
// md5(md5hex(password) + challenge).
func sessionResponse(passwordDigest, challenge string) string {
	sum := md5.Sum([]byte(passwordDigest + challenge)) //nolint:gosec // protocol-mandated
	return hex.EncodeToString(sum[:])
}
