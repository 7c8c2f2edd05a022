package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kombee/eshop-storefront/internal/cart"
	"github.com/kombee/eshop-storefront/internal/saleor"
	"github.com/kombee/eshop-storefront/internal/session"
	"github.com/kombee/eshop-storefront/internal/signup"
)

// Tokens is the slice of the remote commerce API the login surface needs.
type Tokens interface {
	TokenCreate(ctx context.Context, email, password string) (*saleor.TokenCreateResult, error)
}

type AuthHandler struct {
	flow     *signup.Flow
	tokens   Tokens
	sessions *session.Manager
	carts    *cart.Manager
	timeout  time.Duration
}

func NewAuthHandler(flow *signup.Flow, tokens Tokens, sessions *session.Manager, carts *cart.Manager, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		flow:     flow,
		tokens:   tokens,
		sessions: sessions,
		carts:    carts,
		timeout:  timeout,
	}
}

type SignupResponse struct {
	Outcome     signup.Outcome    `json:"outcome"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	FormError   string            `json:"form_error,omitempty"`
	Username    string            `json:"username,omitempty"`
	RedirectTo  string            `json:"redirect_to,omitempty"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	Username   string `json:"username,omitempty"`
	CartCount  int    `json:"cart_count"`
}

// Signup runs the full two-phase registration flow. The partial-success
// outcome (account created, auto-login failed) responds 200: the registration
// itself did not fail.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	var in signup.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.flow.Submit(ctx, visitorID, in)
	if err != nil {
		if errors.Is(err, signup.ErrInProgress) {
			respondError(w, http.StatusConflict, "signup_in_progress", "a signup attempt is already running")
			return
		}
		log.Printf("request %s: signup failed: %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	body := SignupResponse{
		Outcome:     res.Outcome,
		FieldErrors: res.FieldErrors,
		FormError:   res.FormError,
		Username:    res.Username,
		RedirectTo:  res.RedirectTo,
	}

	switch res.Outcome {
	case signup.OutcomeValidationFailed:
		respondJSON(w, http.StatusUnprocessableEntity, body)
	case signup.OutcomeRegistrationFailed:
		respondJSON(w, http.StatusBadRequest, body)
	default:
		respondJSON(w, http.StatusOK, body)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	res, err := h.tokens.TokenCreate(ctx, req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusBadGateway, "upstream_error", "login service unavailable")
		return
	}
	if res.Token == "" || res.User == nil || len(res.Errors) > 0 {
		message := "invalid credentials"
		if len(res.Errors) > 0 {
			message = res.Errors[0].Message
		}
		respondError(w, http.StatusUnauthorized, "invalid_credentials", message)
		return
	}

	username, _, _ := strings.Cut(req.Email, "@")
	if err := h.sessions.Login(ctx, visitorID, res.Token, username); err != nil {
		// persistence warning; the in-memory session is already live
		log.Printf("request %s: %v", getRequestID(r.Context()), err)
	}

	respondJSON(w, http.StatusOK, SessionResponse{
		IsLoggedIn: true,
		Username:   username,
		CartCount:  h.carts.TotalCount(ctx, visitorID),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	if err := h.sessions.Logout(ctx, visitorID); err != nil {
		log.Printf("request %s: %v", getRequestID(r.Context()), err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session is the navbar surface: login state, display name and cart badge
// count in one read.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	visitorID := getVisitorID(r.Context())
	if visitorID == "" {
		respondError(w, http.StatusBadRequest, "missing_visitor", "missing visitor identity")
		return
	}

	s := h.sessions.Current(ctx, visitorID)
	respondJSON(w, http.StatusOK, SessionResponse{
		IsLoggedIn: s.IsLoggedIn(),
		Username:   s.Username,
		CartCount:  h.carts.TotalCount(ctx, visitorID),
	})
}
