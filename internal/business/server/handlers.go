package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-jose/go-jose/v4"
	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/identity-provider/internal/oidc"
	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/session"
	"github.com/openkcm/identity-provider/internal/user"
	"github.com/openkcm/identity-provider/internal/webauthn"
)

// apiServer carries the protocol components behind the HTTP surface.
type apiServer struct {
	engine        *oidc.Engine
	issuer        *oidc.Issuer
	jwks          jose.JSONWebKeySet
	servesJWKS    bool
	users         *user.Service
	sessions      *session.Issuer
	registrar     *webauthn.Registrar
	authenticator *webauthn.Authenticator
}

type Components struct {
	Engine        *oidc.Engine
	Issuer        *oidc.Issuer
	JWKS          jose.JSONWebKeySet
	ServesJWKS    bool
	Users         *user.Service
	Sessions      *session.Issuer
	Registrar     *webauthn.Registrar
	Authenticator *webauthn.Authenticator
}

func newAPIServer(c Components) *apiServer {
	return &apiServer{
		engine:        c.Engine,
		issuer:        c.Issuer,
		jwks:          c.JWKS,
		servesJWKS:    c.ServesJWKS,
		users:         c.Users,
		sessions:      c.Sessions,
		registrar:     c.Registrar,
		authenticator: c.Authenticator,
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /auth/authorize", instrument("authorize", s.handleAuthorize))
	mux.Handle("POST /auth/token", instrument("token", s.handleToken))
	mux.Handle("GET /auth/jwks", instrument("jwks", s.handleJWKS))
	mux.Handle("POST /auth/signin", instrument("signin", s.handleSignin))
	mux.Handle("POST /auth/signup", instrument("signup", s.handleSignup))
	mux.Handle("GET /api/user-info", instrument("user-info", s.handleUserInfo))
	mux.Handle("POST /api/passkey/registration/options", instrument("registration-options", s.handleRegistrationOptions))
	mux.Handle("POST /api/passkey/registration/verify", instrument("registration-verify", s.handleRegistrationVerify))
	mux.Handle("POST /api/passkey/authentication/options", instrument("authentication-options", s.handleAuthenticationOptions))
	mux.Handle("POST /api/passkey/authentication/signin", instrument("authentication-signin", s.handleAuthenticationSignin))

	return mux
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type verifyResponse struct {
	Verified    bool   `json:"verified"`
	AccessToken string `json:"accessToken,omitempty"`
	Message     string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "malformed JSON body"})
		return false
	}
	return true
}

// caller resolves the authenticated identity from the session cookie.
func (s *apiServer) caller(r *http.Request) (session.Claims, error) {
	cookie, err := r.Cookie(s.sessions.CookieName())
	if err != nil {
		return session.Claims{}, serviceerr.ErrUnauthorized
	}

	return s.sessions.Verify(cookie.Value)
}

func (s *apiServer) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := s.caller(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	q := r.URL.Query()
	params := oidc.AuthorizeParams{
		Scope:               q.Get("scope"),
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	redirect, err := s.engine.Authorize(ctx, claims.User(), params)
	if err != nil {
		if verr, ok := oidc.AsValidationError(err); ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: verr.Detail})
			return
		}

		slogctx.Error(ctx, "authorization failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *apiServer) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "malformed form body"})
		return
	}

	// A Basic Authorization header takes precedence over form fields.
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID = r.PostFormValue("client_id")
		clientSecret = r.PostFormValue("client_secret")
	}

	resp, err := s.issuer.Exchange(ctx, clientID, clientSecret,
		r.PostFormValue("code"), r.PostFormValue("code_verifier"))
	if err != nil {
		switch {
		case errors.Is(err, serviceerr.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_client"})
		case errors.Is(err, serviceerr.ErrInvalidGrant):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_grant"})
		default:
			slogctx.Error(ctx, "token exchange failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if !s.servesJWKS {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, s.jwks)
}

func (s *apiServer) handleSignin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	token, err := s.sessions.Issue(u)
	if err != nil {
		slogctx.Error(ctx, "issuing session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	http.SetCookie(w, s.sessions.Cookie(token))
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
		AvatarURL   string `json:"avatarUrl"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "email and password are required"})
		return
	}

	u, err := s.users.Register(ctx, req.Email, req.Password, req.DisplayName, req.AvatarURL)
	if err != nil {
		if errors.Is(err, serviceerr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict", Description: "account already exists"})
			return
		}

		slogctx.Error(ctx, "registering account failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Subject string `json:"sub"`
	}{Subject: u.ID})
}

func (s *apiServer) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	const bearerPrefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if len(authz) <= len(bearerPrefix) || authz[:len(bearerPrefix)] != bearerPrefix {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	token, err := s.issuer.Resolve(ctx, authz[len(bearerPrefix):])
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	u, err := s.users.Get(ctx, token.Subject)
	if err != nil {
		slogctx.Error(ctx, "resolving token subject failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	claims := oidc.IDTokenClaims{Subject: u.ID}
	oidc.ProjectClaims(&claims, token.Scopes, u)

	writeJSON(w, http.StatusOK, struct {
		Subject string `json:"sub"`
		Name    string `json:"name,omitempty"`
		Email   string `json:"email,omitempty"`
		Picture string `json:"picture,omitempty"`
	}{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	})
}

type passkeyRequest struct {
	Username string `json:"username"`
}

func (s *apiServer) handleRegistrationOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req passkeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "username is required"})
		return
	}

	opts, err := s.registrar.BeginRegistration(ctx, req.Username)
	if err != nil {
		slogctx.Error(ctx, "creating registration options failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, opts)
}

func (s *apiServer) handleRegistrationVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username   string                          `json:"username"`
		Credential webauthn.RegistrationCredential `json:"credential"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.registrar.FinishRegistration(ctx, req.Username, req.Credential); err != nil {
		// Distinct causes are logged; the response stays flat.
		slogctx.Info(ctx, "passkey registration rejected", "identity", req.Username, "error", err)
		writeJSON(w, http.StatusBadRequest, verifyResponse{Verified: false, Message: "verification failed"})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{Verified: true})
}

func (s *apiServer) handleAuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req passkeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "username is required"})
		return
	}

	opts, err := s.authenticator.BeginAuthentication(ctx, req.Username)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNoPasskeyRegistered) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Description: "no passkey registered"})
			return
		}

		slogctx.Error(ctx, "creating authentication options failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, opts)
}

func (s *apiServer) handleAuthenticationSignin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username   string                            `json:"username"`
		Credential webauthn.AuthenticationCredential `json:"credential"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := s.authenticator.FinishAuthentication(ctx, req.Username, req.Credential); err != nil {
		slogctx.Info(ctx, "passkey signin rejected", "identity", req.Username, "error", err)
		writeJSON(w, http.StatusBadRequest, verifyResponse{Verified: false, Message: "verification failed"})
		return
	}

	u, err := s.users.GetByEmail(ctx, req.Username)
	if err != nil {
		slogctx.Info(ctx, "passkey signin for unknown account", "identity", req.Username)
		writeJSON(w, http.StatusBadRequest, verifyResponse{Verified: false, Message: "verification failed"})
		return
	}

	sessionToken, err := s.sessions.Issue(u)
	if err != nil {
		slogctx.Error(ctx, "issuing session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	accessToken, err := s.issuer.IssueAccessToken(ctx, u.ID, []string{
		oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopePicture,
	})
	if err != nil {
		slogctx.Error(ctx, "issuing access token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
		return
	}

	http.SetCookie(w, s.sessions.Cookie(sessionToken))
	writeJSON(w, http.StatusOK, verifyResponse{Verified: true, AccessToken: accessToken.Token})
}
