package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/weaver-helpdesk/internal/auth"
	"github.com/spec-kit/weaver-helpdesk/internal/config"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

func TestIssueBridgeToken(t *testing.T) {
	hash, err := auth.HashSecret("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	tokens := auth.NewTokenManager("jwt", 10)
	svc := NewAuthService(config.AuthConfig{BridgeClientID: "bridge", BridgeSecretHash: hash}, tokens, nil)
	ctx := context.Background()

	_, _, err = svc.IssueBridgeToken(ctx, BridgeTokenInput{ClientID: "bridge", ClientSecret: "nope", SubjectType: domain.SubjectTypeUser, SubjectID: "u1"})
	requireCode(t, err, "UNAUTHORIZED")
	_, _, err = svc.IssueBridgeToken(ctx, BridgeTokenInput{ClientID: "other", ClientSecret: "s3cret", SubjectType: domain.SubjectTypeUser, SubjectID: "u1"})
	requireCode(t, err, "UNAUTHORIZED")
	_, _, err = svc.IssueBridgeToken(ctx, BridgeTokenInput{ClientID: "bridge", ClientSecret: "s3cret", SubjectType: "ROBOT", SubjectID: "u1"})
	requireCode(t, err, "VALIDATION_FAILED")
	_, _, err = svc.IssueBridgeToken(ctx, BridgeTokenInput{ClientID: "bridge", ClientSecret: "s3cret", SubjectType: domain.SubjectTypeStaff, SubjectID: "s1", Role: "owner"})
	requireCode(t, err, "VALIDATION_FAILED")

	tok, _, err := svc.IssueBridgeToken(ctx, BridgeTokenInput{ClientID: "bridge", ClientSecret: "s3cret", SubjectType: domain.SubjectTypeStaff, SubjectID: "s1"})
	if err != nil {
		t.Fatalf("IssueBridgeToken: %v", err)
	}
	claims, err := tokens.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != "s1" || claims.Role == nil || *claims.Role != domain.StaffRoleSupport {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIssueBridgeTokenUnconfigured(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{JWTSecret: "jwt"}, nil, nil)
	_, _, err := svc.IssueBridgeToken(context.Background(), BridgeTokenInput{ClientID: "x", ClientSecret: "y"})
	requireCode(t, err, "SERVICE_UNAVAILABLE")
}
