package platforms

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/plylist/internal/shared"
)

// DeveloperTokenTTL is the lifetime of generated developer tokens. Apple allows at most six months.
const DeveloperTokenTTL = 180 * 24 * time.Hour

// NewDeveloperToken signs an Apple Music developer token (ES256 JWT) for teamID with the
// PEM-encoded private key identified by keyID.
func NewDeveloperToken(teamID, keyID string, privateKeyPEM []byte, now time.Time) (string, error) {
	if teamID == "" || keyID == "" {
		return "", fmt.Errorf("%w: team id and key id are required", shared.ErrMissingCredentials)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("%w: invalid private key: %v", shared.ErrAuthFailed, err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(DeveloperTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign developer token: %v", shared.ErrAuthFailed, err)
	}
	return signed, nil
}

// DeveloperTokenFromFile reads the .p8 key at path and signs a developer token with it.
func DeveloperTokenFromFile(teamID, keyID, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: private key path is required", shared.ErrMissingCredentials)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read private key: %v", shared.ErrMissingCredentials, err)
	}
	return NewDeveloperToken(teamID, keyID, data, time.Now())
}
