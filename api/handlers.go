// Package api exposes the account operations over REST.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"pairchat/auth"
	"pairchat/domain"
	errs "pairchat/errors"
	"pairchat/services"
)

// Handler wires the account endpoints. The real-time conversation API
// lives on the WebSocket gateway; REST only covers registration, login
// and contact management.
type Handler struct {
	log      *slog.Logger
	auth     *services.AuthService
	identity *services.IdentityService
	tokens   *auth.TokenManager
}

func NewHandler(log *slog.Logger, authService *services.AuthService, identity *services.IdentityService, tokens *auth.TokenManager) *Handler {
	return &Handler{log: log, auth: authService, identity: identity, tokens: tokens}
}

// Routes builds the router. The caller mounts the WebSocket gateway on the
// same mux before serving.
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/register", h.register).Methods(http.MethodPost)
	router.HandleFunc("/login", h.login).Methods(http.MethodPost)

	authenticated := router.NewRoute().Subrouter()
	authenticated.Use(auth.Middleware(h.tokens))
	authenticated.HandleFunc("/user", h.profile).Methods(http.MethodGet)
	authenticated.HandleFunc("/user/contacts", h.addContact).Methods(http.MethodPost)
	authenticated.HandleFunc("/users", h.lookup).Methods(http.MethodGet)
	return router
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.KindValidation, "malformed request body")
		return
	}
	result, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse(result))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.KindValidation, "malformed request body")
		return
	}
	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse(result))
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errs.KindUnauthorized, "no identity")
		return
	}
	user, err := h.auth.Profile(r.Context(), identity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

// lookup returns another user's public profile. Contacts stay private to
// their owner.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, errs.KindValidation, "missing email query parameter")
		return
	}
	user, err := h.identity.ByEmail(r.Context(), email)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	user.Contacts = nil
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (h *Handler) addContact(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errs.KindUnauthorized, "no identity")
		return
	}
	var req auth.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.KindValidation, "malformed request body")
		return
	}
	user, err := h.auth.AddContact(r.Context(), identity, req.Email)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
		// Internal details stay out of responses.
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, err.Error())
}

func statusOf(kind string) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindNotFound, errs.KindPeerNotFound:
		return http.StatusNotFound
	case errs.KindConflict, errs.KindAlreadyBound:
		return http.StatusConflict
	case errs.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type userPayload struct {
	ID       int64    `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Contacts []string `json:"contacts,omitempty"`
}

func userResponse(user domain.User) userPayload {
	return userPayload{ID: user.ID, Email: user.Email, Name: user.Name, Contacts: user.Contacts}
}

func authResponse(result services.AuthResult) map[string]any {
	return map[string]any{
		"token": result.Token,
		"user":  userResponse(result.User),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	writeJSON(w, status, map[string]string{"kind": kind, "error": reason})
}
