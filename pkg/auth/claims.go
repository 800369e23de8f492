package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	PartnerID *uuid.UUID
	Role      enums.ActorRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. PartnerID is
// present only on partner-role tokens and scopes accept/reject calls.
type AccessTokenClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	PartnerID *uuid.UUID      `json:"partner_id,omitempty"`
	Role      enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
