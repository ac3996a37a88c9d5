package bridge

import (
	"crypto/sha256"
	"encoding/base64"
)

// GenerateAuthHash answers the bridge's auth challenge:
// Base64(SHA256(SHA256(password + salt) + challenge)).
func GenerateAuthHash(password, salt, challenge string) string {
	first := sha256.Sum256([]byte(password + salt))
	second := sha256.Sum256(append(first[:], challenge...))
	return base64.StdEncoding.EncodeToString(second[:])
}
