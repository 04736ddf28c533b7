package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"floorpilot/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	sessionStore := newSessionStore(eng.AppConfig().Web.SessionSecret)

	h := &Handlers{
		engine:   eng,
		sessions: sessionStore,
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	// API routes (no auth required for read)
	r.Route("/api", func(r chi.Router) {
		r.Get("/floors", h.apiListFloors)
		r.Get("/floors/active", h.apiActiveFloor)
		r.Get("/floors/pending", h.apiPendingFloor)
		r.Get("/floors/{id}/snapshot", h.apiFloorSnapshot)
		r.Get("/robot/status", h.apiRobotStatus)
		r.Get("/health", h.apiHealthCheck)
		r.Get("/audit", h.apiAuditLog)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/floors/switch", h.apiSwitchFloor)
		r.Post("/api/floors/save", h.apiSaveFloor)
		r.Post("/api/floors/map-new", h.apiMapNewFloor)
		r.Post("/api/floors/rename", h.apiRenameFloor)
		r.Post("/api/floors/dock", h.apiSetFloorDock)
		r.Post("/api/floors/delete", h.apiDeleteFloor)
		r.Delete("/api/floors/{id}/snapshot", h.apiConsumeSnapshot)
		r.Post("/api/password", h.handleChangePassword)
		r.Get("/api/config", h.apiGetConfig)
		r.Post("/api/config/save", h.apiConfigSave)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
