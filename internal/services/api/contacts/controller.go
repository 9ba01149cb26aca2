package contacts

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soloviev-dev/contactio/internal/domain/contact"
	"github.com/soloviev-dev/contactio/internal/obs"
	"github.com/soloviev-dev/contactio/internal/services/api/auth"
)

type Controller struct {
	uc  *Usecase
	log *zap.Logger
}

func NewController(uc *Usecase, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{uc: uc, log: log.With(zap.String("component", "contacts.controller"))}
}

// Register mounts the contact endpoints behind the auth middleware.
func (ct *Controller) Register(r gin.IRouter, authorized gin.HandlerFunc) {
	g := r.Group("/contacts", authorized)
	g.GET("", ct.list)
	g.POST("", ct.create)
	g.GET("/birthdays", ct.birthdays)
	g.GET("/search", ct.search)
	g.GET("/:id", ct.get)
	g.PUT("/:id", ct.update)
	g.DELETE("/:id", ct.remove)
}

type contactRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=20"`
	LastName    *string    `json:"last_name"`
	Phone       string     `json:"phone" binding:"required"`
	Email       *string    `json:"email" binding:"omitempty,email"`
	Birthday    *time.Time `json:"birthday"`
	Description *string    `json:"description" binding:"omitempty,max=500"`
}

func (ct *Controller) list(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	out, err := ct.uc.List(c.Request.Context(), u, skip, limit)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ct *Controller) create(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	item := &contact.Contact{
		UserID:      u,
		Name:        req.Name,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Email:       req.Email,
		Birthday:    req.Birthday,
		Description: req.Description,
	}
	if err := ct.uc.Create(c.Request.Context(), item); err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (ct *Controller) get(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := ct.uc.Get(c.Request.Context(), u, id)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (ct *Controller) update(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch contact.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	item, err := ct.uc.Update(c.Request.Context(), u, id, patch)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (ct *Controller) remove(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := ct.uc.Delete(c.Request.Context(), u, id)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (ct *Controller) search(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}
	q := c.Query("q")
	if q == "" {
		errorResponse(c, http.StatusUnprocessableEntity, "missing query parameter q")
		return
	}

	out, err := ct.uc.Search(c.Request.Context(), u, q)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ct *Controller) birthdays(c *gin.Context) {
	u := identity(c)
	if u == 0 {
		return
	}

	out, err := ct.uc.UpcomingBirthdays(c.Request.Context(), u)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ct *Controller) mapErr(c *gin.Context, err error) {
	if errors.Is(err, contact.ErrNotFound) {
		errorResponse(c, http.StatusNotFound, "Contact not found")
		return
	}
	obs.WithTrace(c.Request.Context(), ct.log).Error("internal error", zap.Error(err))
	errorResponse(c, http.StatusInternalServerError, "internal error")
}

// identity returns the authenticated user id, aborting with 401 when the
// middleware did not run.
func identity(c *gin.Context) int64 {
	u := auth.Identity(c)
	if u == nil {
		errorResponse(c, http.StatusUnauthorized, "could not validate credentials")
		return 0
	}
	return u.ID
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorResponse(c, http.StatusUnprocessableEntity, "invalid contact id")
		return 0, false
	}
	return id, true
}

func errorResponse(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}
