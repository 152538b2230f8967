package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/freshflower-auth/internal/application"
	"github.com/oksasatya/freshflower-auth/internal/interface/middleware"
	"github.com/oksasatya/freshflower-auth/pkg/response"
	"github.com/oksasatya/freshflower-auth/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	FullNameAlt string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userIDResponse struct {
	UserID string `json:"user_id"`
}

// requestContext carries the client's IP, user agent and request ID down to the service.
func requestContext(c *gin.Context) context.Context {
	return application.WithMeta(c.Request.Context(), application.RequestMeta{
		IP:        middleware.ClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: c.GetString("request_id"),
	})
}

// Register POST /api/auth/register {email, password, fullName}
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	fullName := req.FullName
	if strings.TrimSpace(fullName) == "" {
		fullName = req.FullNameAlt
	}

	u, err := h.Svc.Register(requestContext(c), application.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: fullName,
	})
	if err != nil {
		if msg := application.PublicMessage(err); msg != "" {
			response.Error[any](c, http.StatusBadRequest, msg, nil)
			return
		}
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"email":      req.Email,
		}).Error("registration failed")
		response.Error[any](c, http.StatusInternalServerError, "Registration failed", nil)
		return
	}
	response.Success(c, http.StatusOK, userIDResponse{UserID: u.ID}, "User registered successfully", nil)
}

// Login POST /api/auth/login {email, password}
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) || errors.Is(err, application.ErrInvalidPassword) {
			response.Error[any](c, http.StatusUnauthorized, application.PublicMessage(err), nil)
			return
		}
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"email":      req.Email,
		}).Error("login failed")
		response.Error[any](c, http.StatusInternalServerError, "Login failed", nil)
		return
	}
	response.Success(c, http.StatusOK, userIDResponse{UserID: u.ID}, "Login successful", nil)
}

// Exists GET /api/auth/exists?email=
func (h *AuthHandler) Exists(c *gin.Context) {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		response.Error[any](c, http.StatusBadRequest, "email is required", map[string]string{"email": "is required"})
		return
	}
	ok, err := h.Svc.EmailExists(c.Request.Context(), email)
	if err != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("email lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exists": ok}, "email lookup", nil)
}
