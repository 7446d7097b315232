package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/guidance"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/transport"
)

const FeedbackPollTimeout = 1 * time.Second

// FeedbackQueue enqueues completed sessions for feedback generation.
type FeedbackQueue struct {
	rdb *redis.Client
}

func NewFeedbackQueue(rdb *redis.Client) *FeedbackQueue {
	return &FeedbackQueue{rdb: rdb}
}

func (q *FeedbackQueue) Enqueue(ctx context.Context, sessionID uuid.UUID) error {
	return q.rdb.RPush(ctx, config.WorkerKey.GenerateFeedbackQueue, sessionID.String()).Err()
}

type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error
}

type TranscriptReader interface {
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]model.ChatTurn, error)
	ListSnapshots(ctx context.Context, sessionID uuid.UUID) ([]model.CodeSnapshot, error)
}

type ProblemReader interface {
	GetByID(ctx context.Context, id int64) (*model.Problem, error)
}

type FeedbackWriter interface {
	Feedback(ctx context.Context, in guidance.FeedbackInput) (string, error)
}

// FeedbackWorker replaces the placeholder feedback of completed sessions
// with a generated report.
type FeedbackWorker struct {
	rdb         *redis.Client
	sessions    SessionStore
	transcripts TranscriptReader
	problems    ProblemReader
	writer      FeedbackWriter
	events      transport.Publisher
	timeout     time.Duration
	log         zerolog.Logger
}

func NewFeedbackWorker(
	rdb *redis.Client,
	sessions SessionStore,
	transcripts TranscriptReader,
	problems ProblemReader,
	writer FeedbackWriter,
	events transport.Publisher,
	timeout time.Duration,
	log zerolog.Logger,
) *FeedbackWorker {
	return &FeedbackWorker{
		rdb:         rdb,
		sessions:    sessions,
		transcripts: transcripts,
		problems:    problems,
		writer:      writer,
		events:      events,
		timeout:     timeout,
		log:         log.With().Str("component", "feedback_worker").Logger(),
	}
}

// Start consumes the queue until ctx is cancelled. A job already popped is
// finished before returning; anything still queued waits for the next start.
func (w *FeedbackWorker) Start(ctx context.Context) {
	w.log.Info().Msg("FeedbackWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("FeedbackWorker stopped")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, FeedbackPollTimeout, config.WorkerKey.GenerateFeedbackQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
				time.Sleep(FeedbackPollTimeout)
			}
			continue
		}
		if len(item) < 2 {
			continue
		}

		id, err := uuid.Parse(item[1])
		if err != nil {
			w.log.Error().Err(err).Str("payload", item[1]).Msg("Invalid session id in feedback queue")
			continue
		}

		if err := w.Process(context.WithoutCancel(ctx), id); err != nil {
			w.log.Error().Err(err).Str("session_id", id.String()).Msg("Feedback job failed")
		}
	}
}

// Process generates feedback for one completed session. If generation
// fails the placeholder is swapped for a fixed notice so the session never
// claims feedback is still coming.
func (w *FeedbackWorker) Process(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := w.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if sess.Status != model.SessionStatusCompleted {
		w.log.Warn().Str("session_id", sessionID.String()).Str("status", string(sess.Status)).Msg("Skipping feedback for session that is not completed")
		return nil
	}
	if sess.Feedback != "" && sess.Feedback != guidance.FeedbackPlaceholder {
		return nil
	}

	feedback := guidance.FeedbackUnavailable
	if in, err := w.input(ctx, sess); err != nil {
		w.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Feedback input unavailable")
	} else {
		genCtx, cancel := context.WithTimeout(ctx, w.timeout)
		text, err := w.writer.Feedback(genCtx, in)
		cancel()
		if err != nil {
			w.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Feedback generation failed")
		} else {
			feedback = text
		}
	}

	if err := w.sessions.SetFeedback(ctx, sessionID, feedback); err != nil {
		return fmt.Errorf("store feedback: %w", err)
	}

	ev := transport.Event{
		Type:      transport.EventFeedbackReady,
		SessionID: sessionID,
		Text:      feedback,
		Status:    string(sess.Status),
		At:        time.Now(),
	}
	if err := w.events.Publish(ctx, sessionID, ev); err != nil {
		w.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to publish feedback")
	}

	w.log.Info().Str("session_id", sessionID.String()).Int("chars", len(feedback)).Msg("Feedback stored")
	return nil
}

func (w *FeedbackWorker) input(ctx context.Context, sess *model.Session) (guidance.FeedbackInput, error) {
	in := guidance.FeedbackInput{
		Difficulty: sess.DifficultyPreference,
		Duration:   sess.Duration(time.Now()),
	}

	if sess.ProblemID != nil {
		p, err := w.problems.GetByID(ctx, *sess.ProblemID)
		if err != nil {
			return in, fmt.Errorf("get problem: %w", err)
		}
		in.Problem = p
		if in.Difficulty == "" {
			in.Difficulty = p.Difficulty
		}
	}

	var err error
	if in.Turns, err = w.transcripts.ListTurns(ctx, sess.ID); err != nil {
		return in, fmt.Errorf("list turns: %w", err)
	}
	if in.Snapshots, err = w.transcripts.ListSnapshots(ctx, sess.ID); err != nil {
		return in, fmt.Errorf("list snapshots: %w", err)
	}
	return in, nil
}
