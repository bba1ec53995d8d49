package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/controllers"
	"krishidev/krishidev/utils/types"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

const maxImageUpload = 10 << 20 // 10 MiB

func AskRoutes(ctrl *controllers.AskController) chi.Router {
	r := chi.NewRouter()

	// POST /ask : answer one text question
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var req types.AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.UserID == "" || req.Question == "" {
			http.Error(w, "user_id and question are required", http.StatusBadRequest)
			return
		}
		resp, err := ctrl.Ask(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	// POST /ask/image : multipart plant photo analysis
	r.Post("/image", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxImageUpload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		userID := r.FormValue("user_id")
		if userID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		imageBytes, err := io.ReadAll(io.LimitReader(file, maxImageUpload))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := ctrl.AskImage(r.Context(), userID, header.Filename, imageBytes)
		if err != nil {
			if errors.Is(err, chat.ErrInvalidImage) {
				http.Error(w, "could not decode image", http.StatusBadRequest)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	// GET /ask/ws : websocket answer streaming
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var input types.StreamInput
		if err := json.Unmarshal(data, &input); err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid json"}`))
			return
		}
		if input.UserID == "" || input.Question == "" {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"user_id and question are required"}`))
			return
		}

		ch, err := ctrl.StreamAsk(ctx, input.UserID, input.Question)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"`+err.Error()+`"}`))
			conn.Close(websocket.StatusInternalError, "stream error")
			return
		}
		for chunk := range ch {
			if err := conn.Write(ctx, websocket.MessageText, []byte(chunk)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})

	return r
}
