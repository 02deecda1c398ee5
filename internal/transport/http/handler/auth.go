package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"postboard/internal/app"
	"postboard/internal/transport/http/middleware"
	"postboard/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=25"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *RegisterRequest) trimSpace() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *LoginRequest) trimSpace() {
	r.Email = strings.TrimSpace(r.Email)
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

var registerFields = []string{"name", "email", "password"}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if verr := bindJSON(c, &req); verr != nil {
		if err := h.authService.CheckEmailAvailable(c.Request.Context(), req.Email, verr); err != nil {
			writeError(c, err)
			return
		}
		writeError(c, verr, registerFields...)
		return
	}

	_, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err, registerFields...)
		return
	}

	response.Message(c, http.StatusCreated, "User registered successfully")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if verr := bindJSON(c, &req); verr != nil {
		writeError(c, verr, "email", "password")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err, "email", "password")
		return
	}

	response.JSON(c, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   result.Token,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)
	user, err := h.authService.CurrentUser(caller)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)
	if err := h.authService.Logout(c.Request.Context(), caller); err != nil {
		writeError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Logged out successfully")
}
