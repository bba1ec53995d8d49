package dao

import (
	"context"

	"krishidev/krishidev/sources/psql/models"

	"gorm.io/gorm"
)

type ChatRecordDAO struct {
	DB *gorm.DB
}

func NewChatRecordDAO(db *gorm.DB) *ChatRecordDAO {
	return &ChatRecordDAO{DB: db}
}

func (dao *ChatRecordDAO) SaveText(ctx context.Context, userKey, question, answer string) (*models.ChatRecord, error) {
	rec := models.ChatRecord{
		UserKey:  userKey,
		Kind:     models.RecordKindText,
		Question: question,
		Answer:   answer,
	}
	if err := dao.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (dao *ChatRecordDAO) SaveImage(ctx context.Context, userKey, filename, imageKey, result string) (*models.ChatRecord, error) {
	rec := models.ChatRecord{
		UserKey:  userKey,
		Kind:     models.RecordKindImage,
		Filename: filename,
		ImageKey: imageKey,
		Result:   result,
	}
	if err := dao.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns all of a user's records, text and image, oldest first.
func (dao *ChatRecordDAO) ListByUser(ctx context.Context, userKey string) ([]models.ChatRecord, error) {
	var recs []models.ChatRecord
	err := dao.DB.WithContext(ctx).
		Where("user_key = ?", userKey).
		Order("timestamp ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
