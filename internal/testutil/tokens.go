// Package testutil provides signing keys, certificates and tokens for tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NewRSAKey generates a 2048 bit signing key.
func NewRSAKey(tb testing.TB) *rsa.PrivateKey {
	tb.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate RSA key: %v", err)
	}
	return key
}

// PublicKeyPEM encodes the public half of key as a PEM "PUBLIC KEY" block.
func PublicKeyPEM(tb testing.TB, key *rsa.PrivateKey) []byte {
	tb.Helper()

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		tb.Fatalf("failed to marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// CertificatePEM returns a self-signed certificate for key as a PEM "CERTIFICATE" block.
func CertificatePEM(tb testing.TB, key *rsa.PrivateKey) []byte {
	tb.Helper()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		Subject:      pkix.Name{CommonName: "todos-test-issuer"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		tb.Fatalf("failed to create certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// TokenOptions customizes a signed test token.
type TokenOptions struct {
	KeyID     string
	ExpiresIn time.Duration
	IssuedAt  time.Time
}

// SignRS256 signs a token for subject with key. The token expires after one
// hour unless opts says otherwise.
func SignRS256(tb testing.TB, key *rsa.PrivateKey, subject string, opts ...TokenOptions) string {
	tb.Helper()

	var o TokenOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.IssuedAt.IsZero() {
		o.IssuedAt = time.Now()
	}
	if o.ExpiresIn == 0 {
		o.ExpiresIn = time.Hour
	}

	claims := jwt.RegisteredClaims{
		Issuer:    "https://issuer.todos.test/",
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(o.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(o.IssuedAt.Add(o.ExpiresIn)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if o.KeyID != "" {
		token.Header["kid"] = o.KeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		tb.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// SignHS256 signs a token for subject with a shared secret.
func SignHS256(tb testing.TB, secret []byte, subject string) string {
	tb.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		tb.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// UnsignedToken returns an "alg: none" token for subject.
func UnsignedToken(tb testing.TB, subject string) string {
	tb.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		tb.Fatalf("failed to build unsigned token: %v", err)
	}
	return signed
}

// NewJWKSServer serves the public half of key as a single entry JWKS.
// The server is bound to IPv4 loopback and closed on test cleanup.
func NewJWKSServer(tb testing.TB, key *rsa.PrivateKey, kid string) *httptest.Server {
	tb.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"keys": []map[string]string{
			{
				"kty": "RSA",
				"kid": kid,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			},
		},
	})
	if err != nil {
		tb.Fatalf("failed to encode JWKS: %v", err)
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	server.Listener = listener
	server.Start()
	tb.Cleanup(server.Close)

	return server
}
