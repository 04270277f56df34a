package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/user"
)

var errNotAdmin = errors.New("account is not an active admin")

// RequireAdmin ensures the authenticated user is an admin. Besides the token
// claim the stored account must still be an active admin, so a revoked role
// takes effect before the token expires.
// It MUST be used after auth.AuthRequired middleware.
func RequireAdmin(userService user.Service) gin.HandlerFunc {
	return auth.RequireAdmin(func(ctx context.Context, userID string) error {
		u, err := userService.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !u.IsActive || !u.IsAdmin {
			return errNotAdmin
		}
		return nil
	})
}
