package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soloviev-dev/contactio/internal/domain/user"
	"github.com/soloviev-dev/contactio/internal/obs"
	"github.com/soloviev-dev/contactio/internal/token"
)

type Controller struct {
	uc  *Usecase
	log *zap.Logger
}

func NewController(uc *Usecase, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{uc: uc, log: log.With(zap.String("component", "auth.controller"))}
}

func (ct *Controller) Register(r gin.IRouter) {
	g := r.Group("/auth")
	g.POST("/signup", ct.signup)
	g.POST("/login", ct.login)
	g.GET("/refresh_token", ct.refresh)
	g.POST("/logout", ct.logout)
	g.GET("/confirmed_email/:token", ct.confirmEmail)
	g.POST("/request_email", ct.requestEmail)
}

type signupRequest struct {
	Username string `json:"username" binding:"required,min=5,max=16"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type userResponse struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar}
}

func (ct *Controller) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ct.log.Info("auth.signup", zap.String("email", req.Email))

	u, err := ct.uc.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":   toUserResponse(u),
		"detail": "User successfully created",
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (ct *Controller) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ct.log.Info("auth.login", zap.String("email", req.Email))

	pair, err := ct.uc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ct *Controller) refresh(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		errorResponse(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	ct.log.Info("auth.refresh")

	pair, err := ct.uc.Refresh(c.Request.Context(), raw)
	if err != nil {
		// a bad refresh token is an auth failure, not a malformed request
		if isCodecErr(err) {
			errorResponse(c, http.StatusUnauthorized, err.Error())
			return
		}
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ct *Controller) logout(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		errorResponse(c, http.StatusUnauthorized, "missing bearer token")
		return
	}

	ct.log.Info("auth.logout")

	if err := ct.uc.Logout(c.Request.Context(), raw); err != nil {
		if isCodecErr(err) {
			errorResponse(c, http.StatusUnauthorized, err.Error())
			return
		}
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (ct *Controller) confirmEmail(c *gin.Context) {
	already, err := ct.uc.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		if isCodecErr(err) {
			errorResponse(c, http.StatusUnprocessableEntity, "Invalid token for email verification")
			return
		}
		ct.mapErr(c, err)
		return
	}
	if already {
		c.JSON(http.StatusOK, gin.H{"message": "Your email is already confirmed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email confirmed"})
}

type requestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (ct *Controller) requestEmail(c *gin.Context) {
	var req requestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	already, err := ct.uc.RequestConfirmation(c.Request.Context(), req.Email)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	if already {
		c.JSON(http.StatusOK, gin.H{"message": "Your email is already confirmed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Check your email for confirmation."})
}

func (ct *Controller) mapErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAccountExists):
		errorResponse(c, http.StatusConflict, "Account already exists")
	case errors.Is(err, ErrUnknownAccount),
		errors.Is(err, ErrNotConfirmed),
		errors.Is(err, ErrBadCredentials),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrUnauthenticated):
		errorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrVerification):
		errorResponse(c, http.StatusBadRequest, "Verification error")
	default:
		obs.WithTrace(c.Request.Context(), ct.log).Error("internal error", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "internal error")
	}
}

func isCodecErr(err error) bool {
	return errors.Is(err, token.ErrInvalidSignature) ||
		errors.Is(err, token.ErrExpired) ||
		errors.Is(err, token.ErrScopeMismatch)
}

func errorResponse(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}
