package webauthn

// Option structures handed to the browser, shaped after the WebAuthn
// PublicKeyCredentialCreationOptions / RequestOptions dictionaries with
// binary members base64url-encoded.

type RelyingPartyEntity struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

type UserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type CredentialParameter struct {
	Alg  int64  `json:"alg"`
	Type string `json:"type"`
}

type AuthenticatorSelection struct {
	ResidentKey      string `json:"residentKey"`
	UserVerification string `json:"userVerification"`
}

type CreationOptions struct {
	Challenge              string                 `json:"challenge"`
	RP                     RelyingPartyEntity     `json:"rp"`
	User                   UserEntity             `json:"user"`
	PubKeyCredParams       []CredentialParameter  `json:"pubKeyCredParams"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	Timeout                int                    `json:"timeout"`
	Attestation            string                 `json:"attestation"`
}

type CredentialDescriptor struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Transports []string `json:"transports,omitempty"`
}

type RequestOptions struct {
	AllowCredentials []CredentialDescriptor `json:"allowCredentials"`
	Challenge        string                 `json:"challenge"`
	RPID             string                 `json:"rpId"`
	Timeout          int                    `json:"timeout"`
	UserVerification string                 `json:"userVerification"`
}
