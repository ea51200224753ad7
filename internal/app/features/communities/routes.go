// internal/app/features/communities/routes.go
package communities

import "github.com/go-chi/chi/v5"

// Routes returns the /communities subrouter. Caller identity is expected in
// the request context (callerid.Middleware); each operation decides
// whether it is required.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)

	r.Route("/{id}", func(gr chi.Router) {
		gr.Get("/", h.ServeGroup)
		gr.Delete("/", h.HandleDelete)

		gr.Post("/join", h.HandleJoin)
		gr.Post("/leave", h.HandleLeave)

		gr.Get("/messages", h.ServeMessages)
		gr.Post("/messages", h.HandleSendMessage)

		gr.Post("/requests/{requestId}/approve", h.HandleApprove)
	})

	return r
}
