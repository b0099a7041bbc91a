package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// AccessTokenPayload is what a caller asks to be encoded. JTI is optional.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims carries the caller identity every order operation is
// scoped by. Subject mirrors UserID for tooling that only reads sub.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Caller is the identity the visibility filter and services check against.
func (c AccessTokenClaims) Caller() visibility.Caller {
	return visibility.Caller{ID: c.UserID, Role: c.Role}
}
