package errorlearning

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hexMD5(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func TestFingerprint(t *testing.T) {
	t.Run("stable for the same type and description", func(t *testing.T) {
		a := Fingerprint("timeout", "dev responder hung")
		assert.Len(t, a, 32)
		assert.Equal(t, a, Fingerprint("timeout", "dev responder hung"))
	})

	t.Run("hashes type and description joined by a colon", func(t *testing.T) {
		assert.Equal(t, hexMD5("x:y"), Fingerprint("x", "y"))
	})

	t.Run("different inputs differ", func(t *testing.T) {
		assert.NotEqual(t, Fingerprint("timeout", "dev responder hung"), Fingerprint("timeout", "dev responder hung twice"))
		assert.NotEqual(t, Fingerprint("timeout", "x"), Fingerprint("network", "x"))
	})
}
