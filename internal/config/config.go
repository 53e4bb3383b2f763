// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database    Database    `yaml:"database"`
	ValKey      ValKey      `yaml:"valkey"`
	Housekeeper Housekeeper `yaml:"housekeeper"`

	Issuer       Issuer       `yaml:"issuer"`
	Clients      []Client     `yaml:"clients"`
	RelyingParty RelyingParty `yaml:"relyingParty"`
	Session      Session      `yaml:"session"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix"`
}

// Housekeeper paces the background job that prunes passkey index
// entries whose primary record is gone.
type Housekeeper struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"1h"`
}

// Issuer configures the token issuance side: the issuer URL embedded in
// ID tokens and the signing key material. The algorithm is fixed per
// deployment: HS256 with a shared secret, or RS256 with a PEM keypair
// published via the JWKS endpoint.
type Issuer struct {
	URL        string              `yaml:"url" default:"https://localhost"`
	Algorithm  string              `yaml:"algorithm" default:"HS256"`
	HMACSecret commoncfg.SourceRef `yaml:"hmacSecret"`
	PrivateKey commoncfg.SourceRef `yaml:"privateKey"`
	KeyID      string              `yaml:"keyID" default:"DefaultKeyId"`

	// CodeTTL bounds the lifetime of issued authorization codes.
	CodeTTL  time.Duration `yaml:"codeTTL" default:"10m"`
	TokenTTL time.Duration `yaml:"tokenTTL" default:"1h"`
}

// Client is a statically registered OAuth client. The set is immutable
// and loaded once at startup.
type Client struct {
	ID           string   `yaml:"id"`
	Secret       string   `yaml:"secret"`
	RedirectURIs []string `yaml:"redirectURIs"`
}

// RelyingParty configures the WebAuthn side of the provider.
type RelyingParty struct {
	ID           string        `yaml:"id" default:"localhost"`
	Name         string        `yaml:"name" default:"SampleIDP"`
	Origin       string        `yaml:"origin" default:"https://localhost"`
	ChallengeTTL time.Duration `yaml:"challengeTTL" default:"60s"`
	// Timeout is handed to the browser in ceremony options, in milliseconds.
	Timeout int `yaml:"timeout" default:"60000"`
}

type Session struct {
	Secret   commoncfg.SourceRef `yaml:"secret"`
	Duration time.Duration       `yaml:"duration" default:"1h"`

	CookieTemplate CookieTemplate `yaml:"cookieTemplate"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name" default:"sess"`
	MaxAge   int            `yaml:"maxAge" default:"3600"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure" default:"true"`
	HTTPOnly bool           `yaml:"httpOnly" default:"true"`
	SameSite CookieSameSite `yaml:"sameSite" default:"Lax"`
}
