package errorlearning

import (
	"crypto/md5" //nolint:gosec // identifier, not a security boundary
	"encoding/hex"
)

// Fingerprint is the stable id of an error: the hex MD5 of "type:what".
// Only the type and description take part, so the same mistake made in a
// different context still counts as a repeat.
func Fingerprint(errorType, whatHappened string) string {
	sum := md5.Sum([]byte(errorType + ":" + whatHappened)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
