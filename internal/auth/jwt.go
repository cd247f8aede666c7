package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trungnamdev/authapi/internal/domain/user"
)

// registered claim names are owned by the issuer; stored user claims may
// not overwrite them.
var reservedClaims = map[string]struct{}{
	"iss":   {},
	"aud":   {},
	"exp":   {},
	"iat":   {},
	"nbf":   {},
	"sub":   {},
	"jti":   {},
	"email": {},
}

// Identity is the verified content of a bearer token.
type Identity struct {
	Subject string
	Email   string
	Claims  map[string]string
}

// Issuer produces and verifies HS256-signed bearer tokens bound to a
// fixed issuer/audience pair.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewIssuer(secret, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// Issue signs a token for the given subject carrying the stored claims plus
// the email claim. An empty claim set is fine; the token is issued anyway.
func (i *Issuer) Issue(subject, email string, claims []user.Claim) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(i.ttl)

	mc := jwt.MapClaims{
		"iss":   i.issuer,
		"aud":   i.audience,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(expiresAt),
		"sub":   subject,
		"email": email,
	}

	// stored claims; repeated types keep the last value
	for _, c := range claims {
		if _, reserved := reservedClaims[c.Type]; reserved {
			continue
		}

		mc[c.Type] = c.Value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)

	raw, err := token.SignedString(i.secret)

	if err != nil {
		return "", time.Time{}, err
	}

	return raw, expiresAt, nil
}

// Verify parses a raw token, enforcing the HMAC family plus our
// issuer/audience/expiry, and returns the identity it carries.
func (i *Issuer) Verify(raw string) (*Identity, error) {
	mc := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(raw, mc, func(t *jwt.Token) (interface{}, error) {
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}

		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	id := &Identity{Claims: map[string]string{}}

	if sub, ok := mc["sub"].(string); ok {
		id.Subject = sub
	}

	if email, ok := mc["email"].(string); ok {
		id.Email = email
	}

	if id.Subject == "" {
		return nil, errors.New("token missing subject")
	}

	for k, v := range mc {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}

		s, ok := v.(string)

		if ok {
			id.Claims[k] = s
		}
	}

	return id, nil
}
