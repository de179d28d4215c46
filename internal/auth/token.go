package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// Issuer is stamped into every token and required on parse.
const Issuer = "weaver-helpdesk"

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, clock: time.Now}
}

// Claims describes JWT payload. SubjectID is the chat-platform user id.
type Claims struct {
	SubjectID string             `json:"sub"`
	Subject   domain.SubjectType `json:"subject"`
	Role      *domain.StaffRole  `json:"role,omitempty"`
	GuildID   string             `json:"guild_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the subject.
func (tm *TokenManager) GenerateToken(subjectID string, subject domain.SubjectType, role *domain.StaffRole, guildID string) (string, time.Time, error) {
	now := tm.clock()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		SubjectID: subjectID,
		Subject:   subject,
		Role:      role,
		GuildID:   guildID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims. Only HS256 tokens minted by this
// service are accepted.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
