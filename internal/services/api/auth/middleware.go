package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soloviev-dev/contactio/internal/domain/user"
)

const identityKey = "identity"

// Middleware resolves the bearer access token into an account and aborts
// with 401 otherwise. Handlers behind it read the account via Identity.
func Middleware(uc *Usecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			errorResponse(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		account, err := uc.ResolveIdentity(c.Request.Context(), raw)
		if err != nil {
			errorResponse(c, http.StatusUnauthorized, ErrUnauthenticated.Error())
			return
		}

		c.Set(identityKey, account)
		c.Next()
	}
}

// Identity returns the account resolved by Middleware.
func Identity(c *gin.Context) *user.User {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
