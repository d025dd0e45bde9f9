package acesso

import "github.com/go-chi/chi/v5"

// Mount registra rotas do módulo de acesso.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}
