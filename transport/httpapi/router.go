// Package httpapi serves the REST surface around the realtime core: user
// search, message history, attachments, message edit/delete, and the admin
// dashboard.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"chat-hive/auth"
	"chat-hive/contract"
	"chat-hive/observability"
	"chat-hive/realtime"
	"chat-hive/repositories"
	"chat-hive/transport/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Log      *slog.Logger
	Gate     *auth.Gate
	Hub      *realtime.Hub
	WS       *ws.Server
	Messages contract.IMessageRepository
	Chats    contract.IChatRepository
	Index    *repositories.UserIndex
	Monitor  *observability.Monitor
	Blobs    contract.BlobStore
	BlobDir  string
	AdminKey string
}

func NewRouter(d Deps) http.Handler {
	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/ws", d.WS.HandleWS)

	if d.BlobDir != "" {
		fs := http.StripPrefix("/attachments/", http.FileServer(http.Dir(d.BlobDir)))
		r.Get("/attachments/*", fs.ServeHTTP)
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(pr chi.Router) {
			pr.Use(h.authenticated)

			pr.Get("/users/search", h.searchUsers)
			pr.Get("/chats/{chatID}/messages", h.getMessages)
			pr.Post("/chats/{chatID}/attachments", h.uploadAttachments)
			pr.Put("/messages/{messageID}", h.editMessage)
			pr.Delete("/messages/{messageID}", h.deleteMessage)
		})

		api.Group(func(ar chi.Router) {
			ar.Use(h.adminOnly)
			ar.Get("/admin/stats", h.adminStats)
		})
	})

	return r
}
