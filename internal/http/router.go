package http

import (
	"net/http"

	"bandprep/internal/auth"
	"bandprep/internal/config"
	"bandprep/internal/http/handler"
	mw "bandprep/internal/http/middleware"
	"bandprep/internal/submission"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	subSvc := &submission.Service{DB: db}
	subH := &handler.SubmissionHandler{Svc: subSvc, UploadDir: cfg.UploadDir}
	statusH := &handler.StatusHandler{Subs: subSvc}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/submissions", subH.CreateWriting)
		r.Get("/submissions/{id}/status", statusH.Writing)

		r.Post("/speaking", subH.CreateSpeaking)
		r.Get("/speaking/{id}/status", statusH.Speaking)
	})

	return r
}
