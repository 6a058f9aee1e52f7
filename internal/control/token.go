package control

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/pbkdf2"
)

const (
	tokenIterations = 4096
	tokenKeyLen     = 16
)

// streamToken derives an opaque per-call token from the configured secret,
// mirroring the teacher's pbkdf2-derived Config.Secret but applied to a
// call id instead of a user password. It is an obfuscator, not an access
// control mechanism: spec §1's Non-goals exclude feed authentication, and
// nothing here changes that.
func streamToken(secret string, callID uint32) string {
	salt := strconv.FormatUint(uint64(callID), 10)
	key := pbkdf2.Key([]byte(secret), []byte(salt), tokenIterations, tokenKeyLen, sha256.New)
	return hex.EncodeToString(key)
}
