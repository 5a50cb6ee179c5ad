package httpapi

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/huddle-dev/huddle/internal/domain"
)

type authClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// AuthMiddleware resolves the caller's identity. A valid JWT cookie
// gives an account identity; anything else falls back to a persistent
// guest identity kept in the cookie session. Guests can only use the
// random chat surface, enforced downstream.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie("token"); err == nil && token != "" {
			claims := &authClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err == nil && parsed.Valid && claims.Subject != "" {
				c.Set("user_id", claims.Subject)
				c.Set("user_name", claims.Name)
				c.Set("guest", false)
				c.Next()
				return
			}
		}

		sess := sessions.Default(c)
		guestID, _ := sess.Get("guest_id").(string)
		if guestID == "" {
			guest := domain.NewGuest()
			guestID = string(guest.ID)
			sess.Set("guest_id", guestID)
			_ = sess.Save()
		}
		c.Set("user_id", guestID)
		c.Set("user_name", "guest")
		c.Set("guest", true)
		c.Next()
	}
}
