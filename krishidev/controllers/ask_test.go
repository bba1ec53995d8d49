package controllers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/sources/psql/dao"
	"krishidev/krishidev/sources/psql/models"
	"krishidev/krishidev/utils/logging"
	"krishidev/krishidev/utils/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, history []chat.Turn, question string) (string, error) {
	return g.reply, g.err
}

func (g *stubGenerator) GenerateImage(ctx context.Context, history []chat.Turn, prompt string, img chat.ImagePayload) (string, error) {
	return g.reply, g.err
}

func (g *stubGenerator) GenerateStream(ctx context.Context, history []chat.Turn, question string) (<-chan string, <-chan error, error) {
	ch := make(chan string, 1)
	ch <- g.reply
	close(ch)
	errCh := make(chan error, 1)
	close(errCh)
	return ch, errCh, g.err
}

type stubImageStore struct {
	key     string
	err     error
	uploads int
}

func (s *stubImageStore) UploadImage(ctx context.Context, userKey, filename string, payload chat.ImagePayload) (string, error) {
	s.uploads++
	return s.key, s.err
}

// --- Helpers ---
func setupAskController(t *testing.T, gen chat.Generator, images *stubImageStore) (*AskController, *dao.ChatRecordDAO) {
	logging.InitLogger() // ensures loggers aren't nil
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.ChatRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	chatDAO := dao.NewChatRecordDAO(db)

	filter, err := chat.NewFilter()
	if err != nil {
		t.Fatalf("failed to load filter rules: %v", err)
	}
	store := chat.NewStore(20, 100)
	manager := chat.NewManager(store, filter, gen, 5*time.Second)
	return NewAskController(manager, chatDAO, images), chatDAO
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: 90, G: 140, B: 70, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestAskPersistsExchange(t *testing.T) {
	ctrl, chatDAO := setupAskController(t, &stubGenerator{reply: "Sow in November."}, &stubImageStore{})

	resp, err := ctrl.Ask(context.Background(), types.AskRequest{UserID: "u1", Question: "when to sow wheat?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.HasSuffix(resp.Answer, chat.EncourageSuffix) {
		t.Errorf("answer %q missing suffix", resp.Answer)
	}

	recs, err := chatDAO.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Kind != models.RecordKindText || recs[0].Question != "when to sow wheat?" || recs[0].Answer != resp.Answer {
		t.Errorf("record wrong: %+v", recs[0])
	}
}

func TestAskRemoteErrorStillAnswersAndPersists(t *testing.T) {
	ctrl, chatDAO := setupAskController(t, &stubGenerator{err: errors.New("deadline exceeded")}, &stubImageStore{})

	resp, err := ctrl.Ask(context.Background(), types.AskRequest{UserID: "u1", Question: "soil ph for grapes?"})
	if err != nil {
		t.Fatalf("Ask should swallow remote errors, got %v", err)
	}
	if !strings.HasPrefix(resp.Answer, chat.ErrorMarker) {
		t.Errorf("answer = %q, want error marker text", resp.Answer)
	}

	recs, _ := chatDAO.ListByUser(context.Background(), "u1")
	if len(recs) != 1 {
		t.Errorf("error answer not persisted: %d records", len(recs))
	}
}

func TestAskImagePersistsRecordWithKey(t *testing.T) {
	images := &stubImageStore{key: "images/u1/xyz.jpg"}
	ctrl, chatDAO := setupAskController(t, &stubGenerator{reply: "Powdery mildew on leaves."}, images)

	resp, err := ctrl.AskImage(context.Background(), "u1", "leaf.jpg", testJPEG(t))
	if err != nil {
		t.Fatalf("AskImage: %v", err)
	}
	if resp.ImageKey != "images/u1/xyz.jpg" {
		t.Errorf("image key = %q", resp.ImageKey)
	}
	if images.uploads != 1 {
		t.Errorf("uploads = %d, want 1", images.uploads)
	}

	recs, _ := chatDAO.ListByUser(context.Background(), "u1")
	if len(recs) != 1 || recs[0].Kind != models.RecordKindImage {
		t.Fatalf("image record missing: %+v", recs)
	}
	if recs[0].Filename != "leaf.jpg" || recs[0].ImageKey != "images/u1/xyz.jpg" || recs[0].Result != resp.Result {
		t.Errorf("record fields wrong: %+v", recs[0])
	}
}

func TestAskImageInvalidBytesNeverPersists(t *testing.T) {
	images := &stubImageStore{key: "unused"}
	ctrl, chatDAO := setupAskController(t, &stubGenerator{reply: "unused"}, images)

	_, err := ctrl.AskImage(context.Background(), "u1", "junk.txt", []byte("not an image"))
	if !errors.Is(err, chat.ErrInvalidImage) {
		t.Fatalf("err = %v, want ErrInvalidImage", err)
	}
	if images.uploads != 0 {
		t.Error("invalid image reached object storage")
	}
	recs, _ := chatDAO.ListByUser(context.Background(), "u1")
	if len(recs) != 0 {
		t.Errorf("invalid image persisted: %+v", recs)
	}
}

func TestStreamAskPersistsFinalAnswer(t *testing.T) {
	ctrl, chatDAO := setupAskController(t, &stubGenerator{reply: "Mulch around the base."}, &stubImageStore{})

	ch, err := ctrl.StreamAsk(context.Background(), "u1", "how to retain soil moisture?")
	if err != nil {
		t.Fatalf("StreamAsk: %v", err)
	}
	var got strings.Builder
	for delta := range ch {
		got.WriteString(delta)
	}

	recs, _ := chatDAO.ListByUser(context.Background(), "u1")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Answer != got.String() {
		t.Errorf("persisted %q, streamed %q", recs[0].Answer, got.String())
	}
}
