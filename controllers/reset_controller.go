package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yacine2174/projet-master-sub002/dto"
	"github.com/yacine2174/projet-master-sub002/reset"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// POST /auth/reset-requests
//
// Unknown addresses answer 404. That leaks account existence, but accounts
// here are admin-approved internal ones and the status endpoint is keyed on
// email anyway; see DESIGN.md.
func CreateResetRequest(e *reset.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateResetRequestDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		req, err := e.Create(c.Request.Context(), body.Email)
		if err != nil {
			switch {
			case errors.Is(err, reset.ErrUnknownEmail):
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown email"})
			case errors.Is(err, reset.ErrActiveRequest):
				c.JSON(http.StatusConflict, gin.H{"error": "an active reset request already exists"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusCreated, req)
	}
}

// GET /auth/reset-status?email=
func GetResetStatus(e *reset.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing email"})
			return
		}
		info, err := e.Status(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// PATCH /admin/reset-requests/:id
func ReviewResetRequest(e *reset.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
			return
		}

		var body dto.ReviewResetRequestDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		decision, _ := reset.ParseDecision(body.Decision)

		reviewerStr, _ := c.Get("userID")
		reviewerID, err := bson.ObjectIDFromHex(reviewerStr.(string))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid auth context"})
			return
		}

		req, err := e.Review(c.Request.Context(), rid, decision, reviewerID, body.Notes)
		if err != nil {
			switch {
			case errors.Is(err, reset.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "reset request not found"})
			case errors.Is(err, reset.ErrNotReviewable):
				c.JSON(http.StatusConflict, gin.H{"error": "reset request is not pending"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

// POST /auth/reset-redeem
func RedeemReset(e *reset.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RedeemResetDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := e.Redeem(c.Request.Context(), body.Email, body.NewPassword); err != nil {
			if errors.Is(err, reset.ErrNotRedeemable) {
				c.JSON(http.StatusForbidden, gin.H{"error": "no valid approved reset request"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GET /admin/reset-requests
func ListResetRequests(e *reset.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := e.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": reqs})
	}
}
