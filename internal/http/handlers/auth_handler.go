package handlers

import (
	"net/http"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/http/middleware"
	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/internal/service"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	Auth *service.AuthService
	// Limit guards login and forgot-password. Nil means unlimited.
	Limit func(http.Handler) http.Handler
}

func NewAuthHandler(auth *service.AuthService, limit func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{Auth: auth, Limit: limit}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	limited := r.With()
	if h.Limit != nil {
		limited = r.With(h.Limit)
	}

	r.Post("/signup", h.signUp)
	limited.Post("/login", h.login)
	limited.Post("/forgot-password", h.forgotPassword)
	r.Patch("/reset-password/{token}", h.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Protect(h.Auth))
		r.Patch("/change-password", h.changePassword)
		r.Get("/verify-user", h.verifyUser)
	})
	return r
}

func (h *AuthHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var in domain.SignUpRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.SignUp(r.Context(), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, res)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.Login(r.Context(), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, res)
}

type forgotPasswordOut struct {
	ResetToken string    `json:"resetToken,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Message    string    `json:"message"`
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in domain.ForgotPasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.RequestPasswordReset(r.Context(), in.Email)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	out := forgotPasswordOut{ResetToken: res.Token, ExpiresAt: res.ExpiresAt, Message: "Check your email for the reset link"}
	if res.Token != "" {
		out.Message = "Use this token with the reset-password endpoint"
	}
	response.Message(w, "Password reset token generated successfully", out)
}

type credentialsOut struct {
	*domain.AuthResult
	Message string `json:"message,omitempty"`
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in domain.ResetPasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), in.Password)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Message(w, "Password reset successful", credentialsOut{
		AuthResult: res,
		Message:    "You can now use your new password to login",
	})
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in domain.ChangePasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.ChangePassword(r.Context(), middleware.IdentityFrom(r.Context()), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Message(w, "Password changed successfully", credentialsOut{AuthResult: res})
}

func (h *AuthHandler) verifyUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.CurrentUser(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"user": u})
}
