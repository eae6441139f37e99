package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/store"
)

// AuthHandler signs staff in and lets master accounts manage users.
type AuthHandler struct {
	Store        *store.Store
	SessionStore sessions.Store
	// MasterEmail and MasterPasswordHash describe the bootstrap master
	// account from configuration. Both empty disables it.
	MasterEmail        string
	MasterPasswordHash []byte
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) normalized() credentials {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c
}

func (h *AuthHandler) MasterLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleMaster)
}

func (h *AuthHandler) StoreLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleStore)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role models.Role) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c = c.normalized()
	if c.Email == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	ok, err := h.verify(r.Context(), c, role)
	if err != nil {
		slog.Error("Login lookup failed", "email", c.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}
	if !ok {
		slog.Warn("Login failed", "email", c.Email, "role", role, "ip", clientIP(r))
		writeError(w, http.StatusUnauthorized, "Invalid "+string(role)+" credentials")
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["role"] = string(role)
	session.Values["email"] = c.Email
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	slog.Info("Login successful", "email", c.Email, "role", role)
	writeJSON(w, http.StatusOK, map[string]string{"email": c.Email, "role": string(role)})
}

func (h *AuthHandler) verify(ctx context.Context, c credentials, role models.Role) (bool, error) {
	if role == models.RoleMaster && h.MasterEmail != "" && len(h.MasterPasswordHash) > 0 && c.Email == h.MasterEmail {
		return bcrypt.CompareHashAndPassword(h.MasterPasswordHash, []byte(c.Password)) == nil, nil
	}

	user, err := h.Store.GetUserByEmail(ctx, c.Email)
	if err != nil {
		return false, err
	}
	if user == nil || user.Role != role {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(c.Password)) == nil, nil
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	session.Values["authenticated"] = false
	delete(session.Values, "role")
	delete(session.Values, "email")
	session.Options.MaxAge = -1 // Expire immediately
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) audit(r *http.Request, action, target, detail string) {
	p, _ := principalFrom(r.Context())
	if err := h.Store.AddAuditLog(r.Context(), p.Email, action, target, detail); err != nil {
		slog.Error("Failed to write audit log", "action", action, "target", target, "error", err)
	}
}

// CreateUser returns a handler creating an account with role.
func (h *AuthHandler) CreateUser(role models.Role) http.HandlerFunc {
	action, detail := "create_user", "Created store staff account"
	if role == models.RoleMaster {
		action, detail = "create_master", "Created master account"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var c credentials
		if err := decodeJSON(w, r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		c = c.normalized()
		if c.Email == "" || c.Password == "" {
			writeError(w, http.StatusBadRequest, "Email and password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Password not accepted")
			return
		}
		err = h.Store.CreateUser(r.Context(), c.Email, string(hash), role)
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		if err != nil {
			slog.Error("Failed to create user", "email", c.Email, "role", role, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		h.audit(r, action, c.Email, detail)
		writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
	}
}

func (h *AuthHandler) ListUsers(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.Store.ListUsers(r.Context(), role)
		if err != nil {
			slog.Error("Failed to list users", "role", role, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load users")
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func (h *AuthHandler) ResetStorePassword(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c = c.normalized()
	if c.Email == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Password not accepted")
		return
	}
	err = h.Store.UpdateUserPassword(r.Context(), c.Email, models.RoleStore, string(hash))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Store user not found")
		return
	}
	if err != nil {
		slog.Error("Failed to reset password", "email", c.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	h.audit(r, "reset_password", c.Email, "Reset staff password")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) DeleteStoreUser(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c = c.normalized()
	if c.Email == "" {
		writeError(w, http.StatusBadRequest, "Email required")
		return
	}

	err := h.Store.DeleteUser(r.Context(), c.Email, models.RoleStore)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Store user not found")
		return
	}
	if err != nil {
		slog.Error("Failed to delete user", "email", c.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete staff user")
		return
	}

	h.audit(r, "delete_user", c.Email, "Removed staff account")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Store.ListAuditLogs(r.Context(), 100)
	if err != nil {
		slog.Error("Failed to load audit logs", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load audit logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
