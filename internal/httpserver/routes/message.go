package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/pocketsnooze/snoozerd/internal/httpserver/deps"
	"github.com/pocketsnooze/snoozerd/internal/httpserver/handlers"
	"github.com/pocketsnooze/snoozerd/internal/httpserver/mw"
)

func init() { Register(registerMessage) }

func registerMessage(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).
		Post("/api/v1/message", handlers.Message(d))
}
