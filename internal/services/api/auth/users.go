package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterUsers mounts the account endpoints behind the auth middleware.
func (ct *Controller) RegisterUsers(r gin.IRouter, authorized gin.HandlerFunc) {
	g := r.Group("/users", authorized)
	g.GET("/me", ct.me)
	g.PATCH("/avatar", ct.updateAvatar)
}

func (ct *Controller) me(c *gin.Context) {
	u := Identity(c)
	if u == nil {
		errorResponse(c, http.StatusUnauthorized, ErrUnauthenticated.Error())
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

type avatarRequest struct {
	AvatarURL string `json:"avatar_url" binding:"required,url"`
}

func (ct *Controller) updateAvatar(c *gin.Context) {
	u := Identity(c)
	if u == nil {
		errorResponse(c, http.StatusUnauthorized, ErrUnauthenticated.Error())
		return
	}

	var req avatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := ct.uc.UpdateAvatar(c.Request.Context(), u.Email, req.AvatarURL)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(updated))
}
