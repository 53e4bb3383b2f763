package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/openkcm/identity-provider/internal/serviceerr"
)

// COSE algorithm identifiers accepted at registration. The set is
// closed: anything else is rejected rather than guessed at.
const (
	AlgES256       int64 = -7
	AlgRS256       int64 = -257
	AlgRS256Legacy int64 = -8
)

// CredentialAlgorithms is the ordered list offered in registration
// options.
var CredentialAlgorithms = []int64{AlgRS256Legacy, AlgES256, AlgRS256}

// verifyAssertion checks sig over authenticatorData || SHA256(clientDataJSON)
// using the SubjectPublicKeyInfo and COSE algorithm recorded at
// registration. ECDSA signatures arrive in ASN.1 DER form.
func verifyAssertion(alg int64, publicKeyDER, authenticatorData, clientDataJSON, sig []byte) error {
	clientDataHash := sha256.Sum256(clientDataJSON)
	message := append(append([]byte{}, authenticatorData...), clientDataHash[:]...)
	digest := sha256.Sum256(message)

	parsed, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		return fmt.Errorf("parsing stored public key: %w", err)
	}

	switch alg {
	case AlgES256:
		pub, ok := parsed.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: key type does not match algorithm %d", serviceerr.ErrUnsupportedAlgorithm, alg)
		}
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return serviceerr.ErrSignatureInvalid
		}
	case AlgRS256, AlgRS256Legacy:
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: key type does not match algorithm %d", serviceerr.ErrUnsupportedAlgorithm, alg)
		}
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
			return serviceerr.ErrSignatureInvalid
		}
	default:
		return fmt.Errorf("%w: COSE algorithm %d", serviceerr.ErrUnsupportedAlgorithm, alg)
	}

	return nil
}
