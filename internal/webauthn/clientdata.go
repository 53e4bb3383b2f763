package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ClientData is the decoded clientDataJSON the browser includes in both
// ceremonies. Challenge is base64url as presented, compared verbatim
// against the stored challenge.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

func decodeClientData(encoded string) (ClientData, []byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return ClientData{}, nil, fmt.Errorf("decoding clientDataJSON: %w", err)
	}

	var cd ClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return ClientData{}, nil, fmt.Errorf("unmarshaling clientDataJSON: %w", err)
	}

	return cd, raw, nil
}
