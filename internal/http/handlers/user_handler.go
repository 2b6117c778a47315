// User and profile HTTP handlers.
//
// This file exposes the REST endpoints for browsing accounts and managing
// the caller's own profile:
//   - GET   /users                       (ranked list, paginated, search)
//   - GET   /users/{id}/profile          (public profile by id)
//   - GET   /users/profile_by_username   (public profile by username)
//   - GET   /me                          (own account)
//   - PATCH /me                          (partial profile update)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nkoutro/go-connect-backend/internal/domain"
	"github.com/nkoutro/go-connect-backend/internal/services"
)

// ListUsersResponse wraps a page of users and pagination information.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// EditProfileRequest is the JSON payload for PATCH /me. Absent fields are
// left untouched.
type EditProfileRequest struct {
	Name                        *string `json:"name,omitempty"     binding:"omitempty,min=1,max=128"`
	Bio                         *string `json:"bio,omitempty"      binding:"omitempty,max=2000"`
	Location                    *string `json:"location,omitempty" binding:"omitempty,max=128"`
	ConnectsNeededForConnection *int    `json:"connects_needed_for_connection,omitempty" binding:"omitempty,min=0"`
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (ranked)
// @Description Returns a page of accounts ordered by connection count, excluding the caller. Supports substring search on username and name.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
//
// @Param       search     query  string  false "Substring filter on username or name"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListUsersResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	page, pageSize := clampPagination(c)
	search := strings.TrimSpace(c.Query("search"))

	items, total, err := h.accountSvc.ListPage(c.Request.Context(), userID(c), search, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListUsersResponse{
		Users: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get a user's profile
// @Description Returns the public profile of the user with the given id.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "User ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	target, okID := targetID(c)
	if !okID {
		return
	}
	u, err := h.accountSvc.GetProfile(c.Request.Context(), target)
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetProfileByUsername godoc
// @ID          getProfileByUsername
// @Summary     Get a user's profile by username
// @Description Returns the public profile of the user with the given username.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
//
// @Param       username  query  string  true  "Username"  example(alice)
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Missing username"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/profile_by_username [get]
func (h *Handlers) GetProfileByUsername(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username query parameter is required")
		return
	}
	u, err := h.accountSvc.GetProfileByUsername(c.Request.Context(), username)
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// Me godoc
// @ID          me
// @Summary     Get own account
// @Description Returns the authenticated user's account, including the connects balance.
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} domain.User
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.accountSvc.Me(c.Request.Context(), userID(c))
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// EditProfile godoc
// @ID          editProfile
// @Summary     Edit own profile
// @Description Applies a partial update to the authenticated user's profile. Absent fields keep their value.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.EditProfileRequest  true  "Profile patch"
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /me [patch]
func (h *Handlers) EditProfile(c *gin.Context) {
	var req EditProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.accountSvc.EditProfile(c.Request.Context(), userID(c), services.ProfilePatch{
		Name:                        req.Name,
		Bio:                         req.Bio,
		Location:                    req.Location,
		ConnectsNeededForConnection: req.ConnectsNeededForConnection,
	})
	if err != nil {
		failAccount(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}
