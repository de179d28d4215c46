package dto

import "time"

// BridgeTokenRequest is sent by the chat bridge to act on behalf of a
// platform user or staff member.
type BridgeTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	SubjectType  string `json:"subject_type"`
	SubjectID    string `json:"subject_id"`
	Role         string `json:"role"`
	GuildID      string `json:"guild_id"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
