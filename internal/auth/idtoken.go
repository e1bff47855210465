package auth

import (
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// logTokenIdentity logs the authenticated identity carried by an ID token.
// The token is decoded without signature verification; it is only used for
// log output, never for authorization decisions.
func logTokenIdentity(idToken string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		log.Debugf("could not decode ID token claims: %v", err)
		return
	}

	if email, ok := claims["email"].(string); ok && email != "" {
		log.Infof("Authenticated as %s", email)
		return
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		log.Infof("Authenticated as subject %s", sub)
	}
}
