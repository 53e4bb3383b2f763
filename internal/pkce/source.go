package pkce

import (
	"crypto/rand"
	"encoding/base64"
)

const MethodS256 = "S256"

type Source struct{}

func (p Source) randBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	return b
}

func (p Source) PKCE() PKCE {
	const n = 32

	verifierBuf := make([]byte, base64.RawURLEncoding.EncodedLen(n))
	base64.RawURLEncoding.Encode(verifierBuf, p.randBytes(n))

	return PKCE{
		Verifier:  string(verifierBuf),
		Challenge: GenerateCodeChallenge(string(verifierBuf)),
		Method:    MethodS256,
	}
}
