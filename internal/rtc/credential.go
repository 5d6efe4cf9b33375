package rtc

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/covey.town/internal/platform/errors"
)

// InspectCredential rejects provider credentials that are JWTs past their
// expiry at now. The signature is not checked; the provider verifies it on
// connect. Credentials that are not JWTs are accepted as opaque tokens.
func InspectCredential(credential string, now time.Time) error {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(credential, &claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeConnectFailed, "provider credential is unreadable", err)
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if !claims.ExpiresAt.Time.After(now) {
		return apperrors.WithMetadata(
			apperrors.CodeCredentialExpired,
			"provider credential is expired",
			map[string]string{"ExpiresAt": claims.ExpiresAt.Time.UTC().Format(time.RFC3339)},
		)
	}
	return nil
}
