package routes

import (
	"encoding/json"
	"net/http"

	"krishidev/krishidev/controllers"

	"github.com/go-chi/chi/v5"
)

func ChatsRoutes(ctrl *controllers.AskController) chi.Router {
	r := chi.NewRouter()

	// GET /chats/{user_id} : full persisted history, oldest first
	r.Get("/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		recs, err := ctrl.Chats(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(recs)
	})

	return r
}
