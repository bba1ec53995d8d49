// krishidev/utils/types/chat.go
package types

// AskRequest is the POST /ask payload.
type AskRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

// ImageAskResponse carries the analysis result plus the object key the
// normalized image was stored under.
type ImageAskResponse struct {
	Result   string `json:"result"`
	ImageKey string `json:"image_key"`
}

// StreamInput is the first websocket frame on /ask/ws.
type StreamInput struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}
