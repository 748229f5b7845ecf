package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
	minSecretLen = 32
)

var (
	ErrSecretMissing = errors.New("JWT_SECRET environment variable is required and must not be empty")
	ErrSecretShort   = fmt.Errorf("JWT_SECRET must be at least %d characters long", minSecretLen)
)

var (
	jwtSecret           []byte
	refreshSecret       []byte
	configErr           error
	accessTokenMinutes  = 15
	refreshTokenDays    = 7
	rememberRefreshDays = 30
	CookieSecure        = true
)

func init() {
	configErr = Configure(os.Getenv("JWT_SECRET"), os.Getenv("JWT_REFRESH_SECRET"))

	// Local HTTP dev cannot use secure cookies
	if os.Getenv("COOKIE_SECURE") == "false" {
		CookieSecure = false
	}
	accessTokenMinutes = positiveEnv("ACCESS_TOKEN_MINUTES", accessTokenMinutes)
	refreshTokenDays = positiveEnv("REFRESH_TOKEN_DAYS", refreshTokenDays)
	rememberRefreshDays = positiveEnv("REMEMBER_REFRESH_DAYS", rememberRefreshDays)
}

// Configure sets the signing secrets. An empty refresh secret is derived from
// the access secret.
func Configure(secret, refresh string) error {
	if secret == "" {
		return ErrSecretMissing
	}
	if len(secret) < minSecretLen {
		return ErrSecretShort
	}
	if refresh == "" {
		refresh = secret + "-refresh"
	}
	jwtSecret = []byte(secret)
	refreshSecret = []byte(refresh)
	configErr = nil
	return nil
}

// Ready reports why tokens cannot be issued, or nil once a secret is set.
func Ready() error { return configErr }

func positiveEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

type Claims struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a short-lived access token.
func GenerateToken(userID int, username string) (string, error) {
	return sign(userID, username, tokenAccess, time.Duration(accessTokenMinutes)*time.Minute, jwtSecret)
}

// GenerateRefreshToken creates a refresh token that expires after the given
// number of days.
func GenerateRefreshToken(userID int, username string, days int) (string, error) {
	if days <= 0 {
		days = refreshTokenDays
	}
	return sign(userID, username, tokenRefresh, time.Duration(days)*24*time.Hour, refreshSecret)
}

func sign(userID int, username, kind string, ttl time.Duration, secret []byte) (string, error) {
	if configErr != nil {
		return "", configErr
	}
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ValidateToken(tokenString string) (*Claims, error) {
	return parse(tokenString, tokenAccess, jwtSecret)
}

func ValidateRefreshToken(tokenString string) (*Claims, error) {
	return parse(tokenString, tokenRefresh, refreshSecret)
}

func parse(tokenString, kind string, secret []byte) (*Claims, error) {
	if configErr != nil {
		return nil, configErr
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != kind {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// RefreshDays returns the refresh token TTL in days for the remember flag.
func RefreshDays(remember bool) int {
	if remember {
		return rememberRefreshDays
	}
	return refreshTokenDays
}
