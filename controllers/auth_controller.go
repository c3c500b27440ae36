package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yacine2174/projet-master-sub002/dto"
	"github.com/yacine2174/projet-master-sub002/models"
	"github.com/yacine2174/projet-master-sub002/store"
	"github.com/yacine2174/projet-master-sub002/utils"
)

func Login(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := s.UserByEmail(c.Request.Context(), utils.NormalizeEmail(body.Email))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if err := utils.CheckPassword(user.PasswordHash, body.Password); err != nil {
			if errors.Is(err, utils.ErrCorruptDigest) {
				log.Printf("login: corrupt digest for user %s: %v", user.ID.Hex(), err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stored credentials unreadable"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if user.Status != models.AccountApproved {
			c.JSON(http.StatusForbidden, gin.H{"error": "account not approved"})
			return
		}

		token, expiresAt, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, string(user.Role), utils.AccessTTL())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": expiresAt,
			"user":      user,
		})
	}
}

// Signup opens a PENDING account. An admin has to approve it before login
// succeeds.
func Signup(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.SignupDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		now := time.Now().UTC()
		user := models.User{
			Email:        utils.NormalizeEmail(body.Email),
			Name:         utils.NormalizeName(body.Name),
			PasswordHash: hash,
			Role:         models.RoleSSI,
			Status:       models.AccountPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.CreateUser(c.Request.Context(), &user); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, user)
	}
}
