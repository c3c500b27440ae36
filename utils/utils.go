package utils

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrPasswordMismatch means the plaintext does not match the stored digest.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrCorruptDigest means the stored digest is not a valid bcrypt string.
	// This is a data problem, never to be reported as "wrong password".
	ErrCorruptDigest = errors.New("corrupt password digest")

	// ErrTokenExpired marks a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid marks a malformed or badly-signed token.
	ErrTokenInvalid = errors.New("invalid token")
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword distinguishes a wrong password from a digest that could not
// be parsed at all. Callers must surface the latter as a server-side failure.
func CheckPassword(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("%w: %v", ErrCorruptDigest, err)
}

// NormalizeEmail canonicalizes an address for lookup and storage: unicode
// NFKC, trimmed, lower-cased. Emails compare case-insensitively everywhere.
func NormalizeEmail(email string) string {
	e := norm.NFKC.String(strings.TrimSpace(email))
	return strings.ToLower(e)
}

// NormalizeName trims and strips control runes from a display name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues a stateless HS256 token. There is no server-side
// record and no revocation list: a token stays valid until exp even if the
// account is rejected afterwards, which is why the TTL defaults stay short.
func GenerateAccessToken(userID, email, role string, accessTTL time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(accessTTL)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature and expiry. Both failures are rejected the
// same way by callers; the split sentinel only matters for logs.
func ValidateToken(tokenStr string, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// AccessTTL reads the token validity window from the environment, in minutes.
func AccessTTL() time.Duration {
	minStr := os.Getenv("ACCESS_TOKEN_TTL_MINUTES")
	min, _ := strconv.Atoi(minStr)
	if min <= 0 {
		min = 60
	}
	return time.Duration(min) * time.Minute
}

// ResetApprovalTTL is the redemption window opened when a reviewer approves
// a reset request, in hours.
func ResetApprovalTTL() time.Duration {
	hStr := os.Getenv("RESET_APPROVAL_TTL_HOURS")
	h, _ := strconv.Atoi(hStr)
	if h <= 0 {
		h = 24
	}
	return time.Duration(h) * time.Hour
}

func IsDuplicateKey(err error) bool {
	// Preferred: typed error
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			log.Println("Error code", e.Code)
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Sometimes we might get a BulkWriteException
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Fallback
	msg := err.Error()
	return strings.Contains(msg, "E11000 duplicate key error")
}
