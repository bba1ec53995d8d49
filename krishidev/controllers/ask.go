// krishidev/controllers/ask.go
package controllers

import (
	"context"
	"errors"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/services/llm"
	"krishidev/krishidev/sources/psql/dao"
	"krishidev/krishidev/sources/psql/models"
	"krishidev/krishidev/utils/logging"
	"krishidev/krishidev/utils/types"

	"go.uber.org/zap"
)

// ImageStore is the object-storage capability the controller needs.
type ImageStore interface {
	UploadImage(ctx context.Context, userKey, filename string, payload chat.ImagePayload) (string, error)
}

type AskController struct {
	manager *chat.Manager
	chatDAO *dao.ChatRecordDAO
	images  ImageStore
}

func NewAskController(manager *chat.Manager, chatDAO *dao.ChatRecordDAO, images ImageStore) *AskController {
	return &AskController{manager: manager, chatDAO: chatDAO, images: images}
}

// Ask answers one text turn. Remote failures still produce an answer (the
// error-marker text) and a 200 for parity with the original behavior, so
// only the conversational answer flows back. Persistence is
// log-and-continue, never blocking the answer.
func (c *AskController) Ask(ctx context.Context, req types.AskRequest) (types.AskResponse, error) {
	answer, err := c.manager.AnswerText(ctx, req.UserID, req.Question)
	var remote *llm.RemoteError
	if err != nil && !errors.As(err, &remote) {
		logging.ErrorLogger.Error("answer text failed",
			zap.String("user_id", req.UserID), zap.Error(err))
	}

	if _, err := c.chatDAO.SaveText(ctx, req.UserID, req.Question, answer); err != nil {
		logging.ErrorLogger.Error("save text record failed",
			zap.String("user_id", req.UserID), zap.Error(err))
	}
	return types.AskResponse{Answer: answer}, nil
}

// AskImage analyzes an uploaded plant image. chat.ErrInvalidImage is
// returned to the route for a 400; any other failure degrades to an
// error-text answer like Ask does. The normalized payload goes to object
// storage and the record keeps its key.
func (c *AskController) AskImage(ctx context.Context, userID, filename string, imageBytes []byte) (types.ImageAskResponse, error) {
	answer, payload, err := c.manager.AnswerImage(ctx, userID, imageBytes)
	if errors.Is(err, chat.ErrInvalidImage) {
		return types.ImageAskResponse{}, err
	}
	if err != nil {
		logging.ErrorLogger.Error("answer image failed",
			zap.String("user_id", userID), zap.Error(err))
	}

	imageKey, upErr := c.images.UploadImage(ctx, userID, filename, payload)
	if upErr != nil {
		logging.ErrorLogger.Error("image upload failed",
			zap.String("user_id", userID), zap.Error(upErr))
	}

	if _, err := c.chatDAO.SaveImage(ctx, userID, filename, imageKey, answer); err != nil {
		logging.ErrorLogger.Error("save image record failed",
			zap.String("user_id", userID), zap.Error(err))
	}
	return types.ImageAskResponse{Result: answer, ImageKey: imageKey}, nil
}

// StreamAsk relays answer deltas; the completed answer is persisted from
// the stream's done callback.
func (c *AskController) StreamAsk(ctx context.Context, userID, question string) (<-chan string, error) {
	return c.manager.StreamText(ctx, userID, question, func(answer string) {
		if _, err := c.chatDAO.SaveText(context.WithoutCancel(ctx), userID, question, answer); err != nil {
			logging.ErrorLogger.Error("save streamed record failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	})
}

// Chats returns a user's full persisted history, text and image records
// interleaved oldest first.
func (c *AskController) Chats(ctx context.Context, userID string) ([]models.ChatRecord, error) {
	return c.chatDAO.ListByUser(ctx, userID)
}
