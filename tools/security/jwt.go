package security

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/marc0cl/domu-backend-sub001/tools/errs"
)

// Options controls signing parameters. The gateway only verifies; Generate
// exists for the issuing side and for tests.
type Options struct {
	Secret []byte
	Alg    string        // HS256/HS384/HS512, default HS256
	TTL    time.Duration // default 2h, Generate only
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Verifier validates bearer tokens and yields the numeric user identity.
type Verifier struct {
	opts Options
}

func NewVerifier(opts Options) *Verifier {
	return &Verifier{opts: opts}
}

// Verify parses and validates the token and returns the user id from the sub
// claim. Any failure is terminal for the handshake that supplied the token.
func (v *Verifier) Verify(token string) (int64, error) {
	if strings.TrimSpace(token) == "" {
		return 0, errs.ErrTokenMissing
	}
	if _, err := signingMethod(v.opts.Alg); err != nil {
		return 0, err
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only; reject alg confusion.
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.opts.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return 0, errs.ErrTokenExpired
		}
		return 0, errs.ErrTokenInvalid.WithDetail(err.Error())
	}
	if !parsed.Valid {
		return 0, errs.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return 0, errs.ErrTokenInvalid.WithDetail("claims type mismatch")
	}
	return subjectID(claims)
}

// subjectID accepts sub as a JSON number or a numeric string; the user table
// keys on int64 so anything else is a malformed identity.
func subjectID(claims jwtlib.MapClaims) (int64, error) {
	raw, ok := claims["sub"]
	if !ok {
		return 0, errs.ErrBadIdentity.WithDetail("sub claim missing")
	}
	var id int64
	switch s := raw.(type) {
	case float64:
		id = int64(s)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, errs.ErrBadIdentity.WithDetail("sub is not numeric")
		}
		id = n
	default:
		return 0, errs.ErrBadIdentity.WithDetail("sub claim type")
	}
	if id <= 0 {
		return 0, errs.ErrBadIdentity.WithDetail("sub must be positive")
	}
	return id, nil
}

// Generate signs a token for userID. Used by the issuing service and tests.
func Generate(opts Options, userID int64) (string, time.Time, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
