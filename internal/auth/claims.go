package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
// Tokens identify an operator of the management API; there is no
// multi-tenancy here, every operator sees the same channel.
type Claims struct {
	jwt.RegisteredClaims

	Operator string `json:"operator"`
}
