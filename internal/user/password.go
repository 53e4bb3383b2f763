package user

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

const saltLen = 16

// HashPassword derives a salted digest in the stored credential format
// "base64(salt).base64(sha256(password+salt))".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	return encodeHash(password, salt), nil
}

// VerifyPassword reports whether password matches the stored credential.
// It fails closed on any malformed input.
func VerifyPassword(password, stored string) bool {
	saltPart, _, ok := strings.Cut(stored, ".")
	if !ok {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false
	}

	computed := encodeHash(password, salt)

	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}

func encodeHash(password string, salt []byte) string {
	digest := sha256.Sum256(append([]byte(password), salt...))

	return base64.StdEncoding.EncodeToString(salt) + "." + base64.StdEncoding.EncodeToString(digest[:])
}
