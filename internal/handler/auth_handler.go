package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storefront-auth/internal/middleware"
	"storefront-auth/internal/model"
	"storefront-auth/internal/service"
	"storefront-auth/internal/session"
	"storefront-auth/pkg/apierror"
)

const oauthStateCookie = "oauthstate"

type googleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (model.GoogleIdentity, error)
}

type AuthHandler struct {
	service       *service.AuthService
	cookies       session.CookiePolicy
	google        googleProvider
	loginRedirect string
}

// NewAuthHandler accepts a nil google provider; the Google routes then answer 503.
func NewAuthHandler(service *service.AuthService, cookies session.CookiePolicy, google googleProvider, loginRedirect string) *AuthHandler {
	return &AuthHandler{
		service:       service,
		cookies:       cookies,
		google:        google,
		loginRedirect: strings.TrimRight(loginRedirect, "/"),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    payload.Email,
		FullName: payload.FullName,
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

// RequestOTP serves /request-otp/{purpose}.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	purpose, err := model.ParsePurpose(chi.URLParam(r, "purpose"))
	if err != nil {
		writeError(w, apierror.NotFound("unknown otp flow", chi.URLParam(r, "purpose")))
		return
	}

	var payload model.RequestOTPRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.RequestOTP(r.Context(), purpose, service.RequestOTPInput{ID: payload.ID, Email: payload.Email})
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

// VerifyOTP serves /verify-otp/{purpose}. Register and login sign the account
// in; password reset answers pending with a reset grant.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	purpose, err := model.ParsePurpose(chi.URLParam(r, "purpose"))
	if err != nil {
		writeError(w, apierror.NotFound("unknown otp flow", chi.URLParam(r, "purpose")))
		return
	}

	var payload model.VerifyOTPRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	var res service.AuthResult
	switch purpose {
	case model.PurposeRegister:
		res, err = h.service.VerifyRegistration(r.Context(), payload.ID, payload.Code)
	case model.PurposeLogin:
		res, err = h.service.VerifyLogin(r.Context(), payload.ID, payload.Code)
	default:
		res, err = h.service.VerifyPasswordReset(r.Context(), payload.ID, payload.Code)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ForgotPasswordRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.ForgotPassword(r.Context(), payload.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ResetPasswordRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.ResetPassword(r.Context(), payload.ResetToken, payload.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

// SetPassword completes a Google sign-up started by GoogleCallback.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.SetPasswordRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	res, err := h.service.CompleteGoogleRegistration(r.Context(), service.SetPasswordInput{
		Status:   payload.Status,
		Grant:    payload.Grant,
		Email:    payload.Email,
		FullName: payload.FullName,
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeAuth(w, h.cookies, res)
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apierror.Unavailable("google sign-in is not configured"))
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback always answers with a redirect back to the storefront:
// set-password for new emails, the storefront root with a refresh cookie for
// known ones, and the login page with status=failed otherwise.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apierror.Unavailable("google sign-in is not configured"))
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		slog.WarnContext(r.Context(), "google callback state mismatch")
		h.redirect(w, r, "/login", url.Values{"status": {service.GoogleFailed}})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirect(w, r, "/login", url.Values{"status": {service.GoogleFailed}})
		return
	}

	identity, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		slog.WarnContext(r.Context(), "google exchange failed", "error", err)
		h.redirect(w, r, "/login", url.Values{"status": {service.GoogleFailed}})
		return
	}

	res, err := h.service.AuthenticateGoogle(r.Context(), identity)
	if err != nil {
		h.redirect(w, r, "/login", url.Values{"status": {service.GoogleFailed}})
		return
	}

	switch res.Status {
	case service.GoogleRegister:
		h.redirect(w, r, "/set-password", url.Values{
			"status":    {service.GoogleRegister},
			"email":     {res.Identity.Email},
			"full_name": {res.Identity.Name},
			"grant":     {res.Grant},
		})
	case service.GoogleLogin:
		h.cookies.Set(w, res.Auth.Tokens.RefreshToken)
		h.redirect(w, r, "/", url.Values{"status": {service.GoogleLogin}})
	default:
		h.redirect(w, r, "/login", url.Values{"status": {service.GoogleFailed}})
	}
}

// Refresh reports the session state. After a silent renewal the new access
// token is also returned in the body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	outcome, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrNoCredential)
		return
	}

	body := model.AuthResponse{
		Status:  model.StatusSuccess,
		Code:    http.StatusAccepted,
		Message: "Refresh token success",
	}
	if outcome.Renewed() {
		body.Tokens = &model.AccessTokenBody{AccessToken: outcome.AccessToken}
	}

	writeJSON(w, http.StatusAccepted, body)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	outcome, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrNoCredential)
		return
	}

	summary, err := h.service.Profile(r.Context(), outcome.Claims.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	body := model.AuthResponse{
		Status:  model.StatusSuccess,
		Code:    http.StatusOK,
		Message: "Profile",
		Data:    summary,
	}
	if outcome.Renewed() {
		body.Tokens = &model.AccessTokenBody{AccessToken: outcome.AccessToken}
	}

	writeJSON(w, http.StatusOK, body)
}

func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request, path string, query url.Values) {
	target := h.loginRedirect + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
