// krishidev/chat/manager.go
package chat

import (
	"context"
	"time"

	"krishidev/krishidev/utils/logging"

	"go.uber.org/zap"
)

// ErrorMarker prefixes answers produced from a failed generator call.
const ErrorMarker = "❌ Error: "

// ImageAnalysisPrompt frames every image turn. The analysis result seeds a
// fresh conversation, so follow-up questions continue from this framing.
const ImageAnalysisPrompt = "This is a photo from an Indian farm. " +
	"Identify the crop or plant and any visible disease, pest damage or nutrient deficiency. " +
	"Give short, practical treatment and care advice a farmer can act on."

// Generator is the remote model capability. Implementations must honor
// context cancellation; the manager wraps every call in a bounded timeout.
type Generator interface {
	// Generate answers a text turn given the prior transcript.
	Generate(ctx context.Context, history []Turn, question string) (string, error)
	// GenerateImage analyzes one inline image with no prior text history
	// beyond the priming pair.
	GenerateImage(ctx context.Context, history []Turn, prompt string, img ImagePayload) (string, error)
	// GenerateStream answers a text turn as incremental deltas. The error
	// channel reports at most one failure, after which no more deltas come.
	GenerateStream(ctx context.Context, history []Turn, question string) (<-chan string, <-chan error, error)
}

// Manager runs the per-user conversation lifecycle: filtering, session
// lookup, the generator call, formatting and history bookkeeping.
type Manager struct {
	store   *Store
	filter  *Filter
	gen     Generator
	timeout time.Duration
}

func NewManager(store *Store, filter *Filter, gen Generator, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{store: store, filter: filter, gen: gen, timeout: timeout}
}

// AnswerText produces the answer for one text turn. Identity and
// out-of-domain questions short-circuit without touching the session or the
// generator. A generator failure is returned both as a conversational
// answer and as the error; the session is left unmodified so a failed turn
// never enters the transcript.
func (m *Manager) AnswerText(ctx context.Context, userKey, question string) (string, error) {
	defer logging.LogDuration(ctx, "manager_answer_text")()

	c := m.filter.Classify(question)
	switch c.Kind {
	case KindIdentity:
		return c.Answer, nil
	case KindOutOfDomain:
		return RefusalMessage, nil
	}

	s := m.store.acquire(userKey)
	defer s.mu.Unlock()

	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	raw, err := m.gen.Generate(genCtx, s.history(), question)
	if err != nil {
		logging.ErrorLogger.Error("generator call failed",
			zap.String("user_key", userKey), zap.Error(err))
		return ErrorMarker + err.Error(), err
	}

	answer := Format(raw)
	s.appendExchange(question, answer, m.store.maxTurns)
	return answer, nil
}

// AnswerImage analyzes an uploaded image and resets the user's conversation
// context to the analysis result. Undecodable bytes return ErrInvalidImage
// without touching the session.
func (m *Manager) AnswerImage(ctx context.Context, userKey string, imageBytes []byte) (string, ImagePayload, error) {
	defer logging.LogDuration(ctx, "manager_answer_image")()

	payload, err := NormalizeImage(imageBytes)
	if err != nil {
		return "", ImagePayload{}, err
	}

	s := m.store.acquire(userKey)
	defer s.mu.Unlock()

	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	raw, err := m.gen.GenerateImage(genCtx, primingTurns(), ImageAnalysisPrompt, payload)
	if err != nil {
		logging.ErrorLogger.Error("image generator call failed",
			zap.String("user_key", userKey), zap.Error(err))
		return ErrorMarker + err.Error(), payload, err
	}

	answer := Format(raw)
	// Image turns discard prior text history: the replacement session is
	// primed plus the analysis exchange, and later text turns continue
	// from there.
	m.store.Replace(userKey, ImageAnalysisPrompt, answer)
	return answer, payload, nil
}

// StreamText is AnswerText with incremental delivery. Deltas are relayed on
// the returned channel; once the stream completes the accumulated text is
// formatted, any suffix remainder is sent as a final delta, the exchange is
// appended, and done (if non-nil) receives the full answer. A failed stream
// leaves the session unmodified and delivers an error-marker delta instead.
func (m *Manager) StreamText(ctx context.Context, userKey, question string, done func(answer string)) (<-chan string, error) {
	c := m.filter.Classify(question)
	if c.Kind != KindInDomain {
		answer := c.Answer
		if c.Kind == KindOutOfDomain {
			answer = RefusalMessage
		}
		return oneShot(answer, done), nil
	}

	s := m.store.acquire(userKey)

	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	deltas, errs, err := m.gen.GenerateStream(genCtx, s.history(), question)
	if err != nil {
		cancel()
		s.mu.Unlock()
		logging.ErrorLogger.Error("stream start failed",
			zap.String("user_key", userKey), zap.Error(err))
		return oneShot(ErrorMarker+err.Error(), done), nil
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer s.mu.Unlock()
		defer cancel()

		var full string
		for delta := range deltas {
			full += delta
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
		if err := <-errs; err != nil {
			logging.ErrorLogger.Error("stream failed",
				zap.String("user_key", userKey), zap.Error(err))
			select {
			case out <- ErrorMarker + err.Error():
			case <-ctx.Done():
			}
			return
		}

		answer := Format(full)
		if tail, ok := formatTail(answer, full); ok && tail != "" {
			select {
			case out <- tail:
			case <-ctx.Done():
				return
			}
		}
		s.appendExchange(question, answer, m.store.maxTurns)
		if done != nil {
			done(answer)
		}
	}()
	return out, nil
}

func oneShot(answer string, done func(string)) <-chan string {
	out := make(chan string, 1)
	out <- answer
	close(out)
	if done != nil {
		done(answer)
	}
	return out
}

// formatTail returns what Format added beyond the streamed text, so the
// suffix (or fallback) can be delivered as one last delta.
func formatTail(formatted, streamed string) (string, bool) {
	trimmed := len(streamed)
	for trimmed > 0 && (streamed[trimmed-1] == ' ' || streamed[trimmed-1] == '\n' ||
		streamed[trimmed-1] == '\t' || streamed[trimmed-1] == '\r') {
		trimmed--
	}
	head := streamed[:trimmed]
	if len(formatted) >= len(head) && formatted[:len(head)] == head {
		return formatted[len(head):], true
	}
	return formatted, false
}
