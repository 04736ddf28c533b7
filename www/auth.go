package www

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"floorpilot/store"
)

const sessionName = "floorpilot-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "floorpilot-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // runs on plain HTTP (home LAN)
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *Handlers) isAuthenticated(r *http.Request) bool {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	auth, ok := session.Values["authenticated"].(bool)
	return ok && auth
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAuthenticated(r) {
			h.jsonError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.engine.DB().GetAdminUser(req.Username)
	if err != nil || !checkPassword(user.PasswordHash, req.Password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = req.Username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) getUsername(r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return ""
	}
	username, _ := session.Values["username"].(string)
	return username
}

func (h *Handlers) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current"`
		New     string `json:"new"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(req.New) < 4 {
		h.jsonError(w, "new password too short", http.StatusBadRequest)
		return
	}

	username := h.getUsername(r)
	user, err := h.engine.DB().GetAdminUser(username)
	if err != nil || !checkPassword(user.PasswordHash, req.Current) {
		h.jsonError(w, "current password incorrect", http.StatusForbidden)
		return
	}

	hash, err := hashPassword(req.New)
	if err != nil {
		h.jsonError(w, "hash error", http.StatusInternalServerError)
		return
	}
	if err := h.engine.DB().UpdateAdminPassword(username, hash); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) ensureDefaultAdmin(db *store.DB) {
	exists, err := db.AdminUserExists()
	if err != nil || exists {
		return
	}
	hash, err := hashPassword("admin")
	if err != nil {
		return
	}
	db.CreateAdminUser("admin", hash)
}
