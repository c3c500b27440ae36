package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yacine2174/projet-master-sub002/dto"
	"github.com/yacine2174/projet-master-sub002/models"
	"github.com/yacine2174/projet-master-sub002/store"
	"github.com/yacine2174/projet-master-sub002/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// GET /admin/users
func ListUsers(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": users})
	}
}

// PATCH /admin/users/:id/status — approve or reject a pending account.
//
// Rejection does not invalidate tokens the user already holds; with
// stateless tokens they stay valid until expiry.
func UpdateUserStatus(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var body dto.UpdateUserStatusDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, _ := models.ParseAccountStatus(body.Status)

		if err := s.UpdateUserStatus(c.Request.Context(), uid, status, time.Now().UTC()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// PATCH /admin/users/:id/role
func UpdateUserRole(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var body dto.UpdateUserRoleDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role, _ := models.ParseRole(body.Role)

		if err := s.UpdateUserRole(c.Request.Context(), uid, role, time.Now().UTC()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// POST /users/me/password — the authenticated self-update path. Outside of
// this handler only the reset workflow is allowed to touch the hash.
func ChangeMyPassword(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangeMyPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userIDStr, ok := c.Get("userID")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}
		userID, err := bson.ObjectIDFromHex(userIDStr.(string))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid auth context"})
			return
		}

		user, err := s.UserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		if err := utils.CheckPassword(user.PasswordHash, body.CurrentPassword); err != nil {
			if errors.Is(err, utils.ErrCorruptDigest) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stored credentials unreadable"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
			return
		}

		newHash, err := utils.HashPassword(body.NewPassword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		if err := s.UpdateUserPassword(c.Request.Context(), userID, newHash, time.Now().UTC()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
