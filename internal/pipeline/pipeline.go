// Package pipeline orchestrates answer generation: a question submission
// updates stored state synchronously, then a background worker normalizes the
// image, calls the inference gateway and writes the answer back.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"drawing-qa-backend/internal/cache"
	"drawing-qa-backend/internal/common"
	"drawing-qa-backend/internal/imaging"
	"drawing-qa-backend/internal/store"
)

// Gateway produces an answer for a base64 PNG image and a question.
type Gateway interface {
	Ask(ctx context.Context, imageBase64, question string) (string, error)
}

type Pipeline struct {
	store   store.ImageStore
	gateway Gateway
	answers *cache.AnswerCache // optional

	mu      sync.Mutex
	queued  map[int64]string // id -> latest question awaiting a run
	running map[int64]bool
	wg      sync.WaitGroup
}

// New creates a pipeline. answers may be nil when caching is disabled.
func New(imageStore store.ImageStore, gateway Gateway, answers *cache.AnswerCache) *Pipeline {
	return &Pipeline{
		store:   imageStore,
		gateway: gateway,
		answers: answers,
		queued:  make(map[int64]string),
		running: make(map[int64]bool),
	}
}

// SubmitQuestion validates the question, persists it (clearing any previous
// answer) and schedules background answer generation, returning without
// waiting for it. At most one worker runs per record id: a re-submission
// while a run is in flight replaces the queued question instead of spawning
// another goroutine, so the final answer always corresponds to the latest
// completed submission.
func (p *Pipeline) SubmitQuestion(ctx context.Context, id int64, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return common.ErrInvalidInput
	}

	if err := p.store.SetQuestion(ctx, id, question); err != nil {
		return err
	}

	p.mu.Lock()
	p.queued[id] = question
	if p.running[id] {
		p.mu.Unlock()
		return nil
	}
	p.running[id] = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.work(id)

	return nil
}

// Wait blocks until all scheduled runs have finished. Used by tests and by
// graceful shutdown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// work drains queued questions for one record id, always processing the
// latest submission.
func (p *Pipeline) work(id int64) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		question, ok := p.queued[id]
		if !ok {
			p.running[id] = false
			p.mu.Unlock()
			return
		}
		delete(p.queued, id)
		p.mu.Unlock()

		p.run(context.Background(), id, question)
	}
}

func (p *Pipeline) run(ctx context.Context, id int64, question string) {
	log := slog.With("job_id", uuid.NewString(), "image_id", id)

	data, err := p.store.GetData(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		// Record was deleted mid-flight.
		log.Info("image gone before processing, skipping")
		return
	}
	if err != nil {
		log.Error("failed to read image data", "error", err)
		return
	}

	answer, ok := p.cachedAnswer(ctx, data, question, log)
	if !ok {
		encoded, err := imaging.Normalize(data)
		if err != nil {
			log.Error("failed to normalize image", "error", err)
			p.markFailed(ctx, id, question, log)
			return
		}

		answer, err = p.gateway.Ask(ctx, encoded, question)
		if err != nil {
			log.Error("inference failed", "error", err)
			p.markFailed(ctx, id, question, log)
			return
		}

		p.storeAnswerInCache(ctx, data, question, answer, log)
	}

	updated, err := p.store.SetAnswer(ctx, id, question, answer)
	if err != nil {
		log.Error("failed to store answer", "error", err)
		return
	}
	if !updated {
		// Question changed or record deleted while the run was in flight.
		log.Info("answer discarded as stale")
		return
	}

	log.Info("answer stored", "answer_len", len(answer))
}

func (p *Pipeline) markFailed(ctx context.Context, id int64, question string, log *slog.Logger) {
	if err := p.store.MarkFailed(ctx, id, question); err != nil {
		log.Error("failed to mark record failed", "error", err)
	}
}

func (p *Pipeline) cachedAnswer(ctx context.Context, data []byte, question string, log *slog.Logger) (string, bool) {
	if p.answers == nil {
		return "", false
	}
	answer, ok, err := p.answers.Get(ctx, cache.Key(data, question))
	if err != nil {
		log.Warn("answer cache read failed", "error", err)
		return "", false
	}
	if ok {
		log.Info("answer served from cache")
	}
	return answer, ok
}

func (p *Pipeline) storeAnswerInCache(ctx context.Context, data []byte, question, answer string, log *slog.Logger) {
	if p.answers == nil {
		return
	}
	if err := p.answers.Set(ctx, cache.Key(data, question), answer); err != nil {
		log.Warn("answer cache write failed", "error", err)
	}
}
