package apple

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/User184/apple-signin-bridge/providers"
)

const (
	// Audience is the fixed audience of every client assertion. It is the
	// identity provider's issuer URL, never one of the client identities.
	Audience = "https://appleid.apple.com"

	// ClientSecretTTL is the lifetime of a minted client assertion.
	ClientSecretTTL = time.Hour
)

// Credential is the signing material issued by the Apple developer account.
// It is parsed once at startup and only read afterwards, so it is safe for
// concurrent use without locking.
type Credential struct {
	// TeamID is the developer team identifier, used as the assertion issuer
	TeamID string

	// KeyID identifies the signing key, carried in the assertion header
	KeyID string

	// PrivateKey is the P-256 key from the .p8 file
	PrivateKey *ecdsa.PrivateKey
}

// ParseCredential parses a PEM-encoded EC private key (PKCS#8 as delivered by Apple,
// or SEC1) into a Credential. Any problem is reported as a *providers.ConfigurationError.
func ParseCredential(teamID, keyID string, pemBytes []byte) (*Credential, error) {
	if teamID == "" {
		return nil, &providers.ConfigurationError{Reason: "team ID is required"}
	}
	if keyID == "" {
		return nil, &providers.ConfigurationError{Reason: "key ID is required"}
	}
	if len(bytes.TrimSpace(pemBytes)) == 0 {
		return nil, &providers.ConfigurationError{Reason: "private key is required"}
	}

	// Keys passed through environment variables often carry escaped newlines
	pemBytes = bytes.ReplaceAll(pemBytes, []byte(`\n`), []byte("\n"))

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &providers.ConfigurationError{Reason: "private key is not valid PEM"}
	}

	key, err := parseECKey(block.Bytes)
	if err != nil {
		return nil, &providers.ConfigurationError{Reason: "private key could not be parsed", Err: err}
	}
	if key.Curve != elliptic.P256() {
		return nil, &providers.ConfigurationError{Reason: "private key must use the P-256 curve"}
	}

	return &Credential{
		TeamID:     teamID,
		KeyID:      keyID,
		PrivateKey: key,
	}, nil
}

func parseECKey(der []byte) (*ecdsa.PrivateKey, error) {
	keyAny, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		ecKey, ecErr := x509.ParseECPrivateKey(der)
		if ecErr != nil {
			return nil, err
		}
		return ecKey, nil
	}

	ecKey, ok := keyAny.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not ECDSA")
	}
	return ecKey, nil
}

// MintClientSecret builds the ES256 client assertion Apple accepts in place of a
// static client secret. The assertion is bound to exactly one client identity
// through its subject claim and expires one hour after now.
func MintClientSecret(cred *Credential, clientID string, now time.Time) (string, error) {
	if cred == nil || cred.PrivateKey == nil {
		return "", &providers.ConfigurationError{Reason: "signing credential is not configured"}
	}
	if clientID == "" {
		return "", &providers.ConfigurationError{Reason: "client identity is required"}
	}

	iat := now.Unix()
	claims := jwt.MapClaims{
		"iss": cred.TeamID,
		"iat": iat,
		"exp": iat + int64(ClientSecretTTL/time.Second),
		"aud": Audience,
		"sub": clientID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = cred.KeyID

	signed, err := token.SignedString(cred.PrivateKey)
	if err != nil {
		return "", &providers.ConfigurationError{Reason: "client assertion could not be signed", Err: err}
	}
	return signed, nil
}

// Minter mints client assertions with a shared credential and clock.
type Minter struct {
	credential *Credential
	now        func() time.Time
}

// NewMinter creates a Minter. A nil now defaults to time.Now.
func NewMinter(cred *Credential, now func() time.Time) *Minter {
	if now == nil {
		now = time.Now
	}
	return &Minter{credential: cred, now: now}
}

// Mint returns a fresh client assertion for clientID.
func (m *Minter) Mint(clientID string) (string, error) {
	return MintClientSecret(m.credential, clientID, m.now())
}
