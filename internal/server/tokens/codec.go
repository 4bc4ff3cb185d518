// Package tokens implements the signed bearer-token codec: compact HS256
// tokens carrying either an anonymous-session claim or an authenticated
// email claim, with pinned issuer and audience.
package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"webshop/server/internal/common"
)

// SubjectKind discriminates the two identity kinds a token can carry.
type SubjectKind int

const (
	SubjectAnonymous SubjectKind = iota + 1
	SubjectAuthenticated
)

// Subject is the tagged identity parsed out of a verified claim set, built
// exactly once at verification time. Exactly one of SessionID/Email is
// meaningful, selected by Kind.
type Subject struct {
	Kind      SubjectKind
	SessionID int64
	Email     string
}

// AnonymousSubject returns a Subject for the given session id.
func AnonymousSubject(sessionID int64) Subject {
	return Subject{Kind: SubjectAnonymous, SessionID: sessionID}
}

// AuthenticatedSubject returns a Subject for the given login email.
func AuthenticatedSubject(email string) Subject {
	return Subject{Kind: SubjectAuthenticated, Email: email}
}

// Claims is the token payload. SessionID and Email are mutually exclusive;
// refresh tokens carry neither (registered claims only).
type Claims struct {
	jwt.RegisteredClaims
	SessionID string   `json:"sid,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// ParseSubject extracts the identity sum value from the claims. It fails
// with common.ErrMalformedClaims unless exactly one subject claim is set.
func (c *Claims) ParseSubject() (Subject, error) {
	switch {
	case c.Email != "" && c.SessionID != "":
		return Subject{}, common.ErrMalformedClaims
	case c.Email != "":
		return AuthenticatedSubject(c.Email), nil
	case c.SessionID != "":
		id, err := strconv.ParseInt(c.SessionID, 10, 64)
		if err != nil {
			return Subject{}, common.ErrMalformedClaims
		}
		return AnonymousSubject(id), nil
	default:
		return Subject{}, common.ErrMalformedClaims
	}
}

// Codec signs and verifies tokens with a fixed HMAC key, issuer and
// audience. It is read-only after construction and safe for concurrent use.
type Codec struct {
	key      []byte
	issuer   string
	audience string

	// now is a clock seam for tests.
	now func() time.Time
}

// NewCodec constructs a Codec. The key, issuer and audience come from the
// process-wide configuration and never change at runtime.
func NewCodec(key []byte, issuer, audience string) *Codec {
	return &Codec{key: key, issuer: issuer, audience: audience, now: time.Now}
}

func (c *Codec) registeredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

// Issue produces a signed access token for the given subject with
// exp = now+ttl and a fresh jti. Roles are only meaningful for
// authenticated subjects.
func (c *Codec) Issue(subject Subject, roles []string, ttl time.Duration) (string, error) {
	claims := &Claims{RegisteredClaims: c.registeredClaims(ttl)}

	switch subject.Kind {
	case SubjectAnonymous:
		claims.SessionID = strconv.FormatInt(subject.SessionID, 10)
	case SubjectAuthenticated:
		claims.Email = subject.Email
		claims.Roles = roles
	default:
		return "", common.ErrMalformedClaims
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// IssueOpaque produces a signed token with an empty claim payload (jti, iat,
// exp, iss, aud only). Refresh tokens are issued this way: they prove
// nothing beyond being the bearer secret stored on the session.
func (c *Codec) IssueOpaque(ttl time.Duration) (string, error) {
	claims := &Claims{RegisteredClaims: c.registeredClaims(ttl)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify parses the token and checks signature, issuer and audience with
// zero clock skew. When checkExpiry is false the exp claim is ignored but
// everything else is still enforced; this supports validating an access
// token that is allowed to have expired while its paired refresh token is
// live. Failures map onto the common sentinel errors.
func (c *Codec) Verify(tokenString string, checkExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if checkExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	}, opts...)
	if err != nil {
		return nil, translateJWTError(err)
	}

	// Issuer and audience are enforced on both paths, including the
	// expiry-ignoring one, so a token minted for another service never
	// verifies here.
	if claims.Issuer != c.issuer {
		return nil, common.ErrWrongIssuer
	}
	if !containsAudience(claims.Audience, c.audience) {
		return nil, common.ErrWrongAudience
	}

	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func translateJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return common.ErrWrongIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return common.ErrWrongAudience
	default:
		return common.ErrMalformedToken
	}
}
