package idura

import (
	"fmt"
	"strings"

	"eid-auth-service/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

// decodeClaims reads the payload segment without checking the signature.
func decodeClaims(rawIDToken string) (map[string]any, error) {
	if strings.Count(rawIDToken, ".") != 2 {
		return nil, fmt.Errorf("%w: id_token is not a three-segment token", auth.ErrProtocolViolation)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, claims); err != nil {
		return nil, fmt.Errorf("%w: id_token payload: %v", auth.ErrProtocolViolation, err)
	}
	return claims, nil
}

// normalize maps broker claim names, including the BankID aliases, onto
// the canonical identity.
func normalize(claims map[string]any) *auth.Identity {
	return &auth.Identity{
		Subject:    str(claims, "sub"),
		NationalID: str(claims, "uniqueuserid"),
		FullName:   str(claims, "name"),
		GivenName:  str(claims, "given_name"),
		FamilyName: str(claims, "family_name"),
		BirthDate:  str(claims, "birthdate"),
		Email:      str(claims, "email", "emailaddress"),
		Phone:      str(claims, "phone_number", "mobilephone"),
		SSN:        str(claims, "socialno"),
		Nonce:      str(claims, "nonce"),
	}
}

// str returns the first non-empty string claim among keys.
func str(claims map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := claims[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
