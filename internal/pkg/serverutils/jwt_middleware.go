// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of an access token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// RevocationList reports tokens revoked by logout.
type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// GenerateToken signs an access token for userID. The returned id names the
// token for revocation.
func GenerateToken(secret string, userID uuid.UUID, ttl time.Duration) (string, string, error) {
	tokenID := uuid.NewString()
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return signed, tokenID, nil
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken extracts the token from the Authorization header, falling back
// to the "token" query parameter browsers use for websockets.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

// Authenticate validates tokenStr and checks it has not been revoked.
func Authenticate(ctx context.Context, secret string, revoked RevocationList, tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, Unauthorized("Missing token")
	}
	claims, err := ParseToken(secret, tokenStr)
	if err != nil {
		return nil, Unauthorized("Invalid token")
	}
	if revoked != nil {
		isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, NewAppError(fiber.StatusServiceUnavailable, "Cannot verify token", err)
		}
		if isRevoked {
			return nil, Unauthorized("Token revoked")
		}
	}
	return claims, nil
}

// JwtMiddleware rejects requests without a valid bearer token and stores
// the caller in Locals "user_id" and the token in "claims".
func JwtMiddleware(secret string, revoked RevocationList) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		claims, err := Authenticate(ctx.UserContext(), secret, revoked, BearerToken(ctx))
		if err != nil {
			var appErr *AppError
			if errors.As(err, &appErr) {
				return ctx.Status(appErr.Code).JSON(ErrorResponse(appErr.Code, appErr.Message))
			}
			return err
		}

		ctx.Locals("user_id", claims.UserID)
		ctx.Locals("claims", claims)
		return ctx.Next()
	}
}

// UserID returns the caller set by JwtMiddleware.
func UserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, Unauthorized("Unauthorized")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, Unauthorized("Invalid user ID")
	}
	return userId, nil
}

func TokenClaims(ctx *fiber.Ctx) (*Claims, bool) {
	claims, ok := ctx.Locals("claims").(*Claims)
	return claims, ok
}
