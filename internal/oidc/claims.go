package oidc

import "github.com/openkcm/identity-provider/internal/user"

// ProjectClaims copies profile fields into claims for each granted
// scope: profile carries the display name, email the address, picture
// the avatar URL. openid contributes nothing on its own and unknown
// scopes are ignored.
func ProjectClaims(claims *IDTokenClaims, scopes []string, u user.User) {
	for _, scope := range scopes {
		switch scope {
		case ScopeProfile:
			claims.Name = u.DisplayName
		case ScopeEmail:
			claims.Email = u.Email
		case ScopePicture:
			claims.Picture = u.AvatarURL
		}
	}
}
