package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/auth"
	"github.com/spec-kit/weaver-helpdesk/internal/config"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/weaver-helpdesk/pkg/util/errorutil"
)

// BridgeTokenInput is a chat bridge asking for a token on behalf of a
// platform user or staff member.
type BridgeTokenInput struct {
	ClientID     string
	ClientSecret string
	SubjectType  domain.SubjectType
	SubjectID    string
	Role         string
	GuildID      string
}

// AuthService issues bearer tokens to the trusted chat bridge.
type AuthService struct {
	tokenMgr   *auth.TokenManager
	clientID   string
	secretHash string
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tokenMgr:   tokens,
		clientID:   cfg.BridgeClientID,
		secretHash: cfg.BridgeSecretHash,
		logger:     logger,
	}
}

// IssueBridgeToken checks the bridge credentials and mints a token for the
// subject the bridge acts for.
func (s *AuthService) IssueBridgeToken(_ context.Context, input BridgeTokenInput) (string, time.Time, error) {
	if s.secretHash == "" {
		return "", time.Time{}, apperrors.NewServiceUnavailable("bridge credentials are not configured")
	}
	idMatch := subtle.ConstantTimeCompare([]byte(input.ClientID), []byte(s.clientID)) == 1
	if err := auth.CompareSecret(s.secretHash, input.ClientSecret); err != nil || !idMatch {
		s.logger.Warn("bridge authentication failed", zap.String("client_id", input.ClientID))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid client credentials")
	}

	subjectID := strings.TrimSpace(input.SubjectID)
	if subjectID == "" {
		return "", time.Time{}, apperrors.NewValidationError("subject_id is required", nil)
	}

	var role *domain.StaffRole
	switch input.SubjectType {
	case domain.SubjectTypeUser:
	case domain.SubjectTypeStaff:
		r := domain.StaffRoleSupport
		if raw := strings.TrimSpace(input.Role); raw != "" {
			r = domain.StaffRole(strings.ToUpper(raw))
			if r != domain.StaffRoleSupport && r != domain.StaffRoleAdmin {
				return "", time.Time{}, apperrors.NewValidationError("unknown staff role", map[string]any{"role": input.Role})
			}
		}
		role = &r
	default:
		return "", time.Time{}, apperrors.NewValidationError("subject_type must be USER or STAFF", nil)
	}

	token, exp, err := s.tokenMgr.GenerateToken(subjectID, input.SubjectType, role, input.GuildID)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}
