package form

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/internal/ports/outbound"
	"github.com/alchemorsel/recipe-form/pkg/errors"
	"go.uber.org/zap"
)

// Outcomes reported to the Recorder
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeTransport  = "transport_error"
	OutcomeParse      = "parse_error"
	OutcomeStale      = "stale"
)

// StateStore persists form state per session. Load returns NewState() for
// an unknown session.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, s State) error
}

// Recorder observes generation attempts
type Recorder interface {
	ObserveGeneration(outcome string, diet recipe.Diet, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveGeneration(string, recipe.Diet, time.Duration) {}

const lockStripes = 64

// DefaultPendingTimeout bounds how long a stored loading state is shown
// without a request resolving it
const DefaultPendingTimeout = 5 * time.Minute

// Service drives the form state machine for many sessions. Transitions of
// one session are serialized; the backend call runs outside the lock so a
// slow backend never blocks reads of the state.
type Service struct {
	generator outbound.RecipeGenerator
	store     StateStore
	recorder  Recorder
	logger    *zap.Logger
	locks     [lockStripes]sync.Mutex

	pendingTimeout time.Duration
	now            func() time.Time
}

// NewService creates a new form service. recorder may be nil.
func NewService(generator outbound.RecipeGenerator, store StateStore, recorder Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		generator: generator,
		store:     store,
		recorder:  recorder,
		logger:    logger.Named("recipe-form"),

		pendingTimeout: DefaultPendingTimeout,
		now:            time.Now,
	}
}

// SetPendingTimeout changes the age after which an unresolved loading state
// is reported as failed. Zero keeps loading states until they resolve.
func (s *Service) SetPendingTimeout(d time.Duration) {
	s.pendingTimeout = d
}

// State returns the current state of the session
func (s *Service) State(ctx context.Context, sessionID string) (State, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load form state: %w", err)
	}
	return s.expire(st), nil
}

// Edit stores the draft of the session
func (s *Service) Edit(ctx context.Context, sessionID string, draft recipe.Draft) (State, error) {
	return s.update(ctx, sessionID, func(st State) State {
		return Edit(s.expire(st), draft)
	})
}

// Generate submits draft for the session and waits for the backend. The
// returned error is non-nil only when the state could not be loaded or
// saved; validation and backend failures are reported through the state.
func (s *Service) Generate(ctx context.Context, sessionID string, draft recipe.Draft) (State, error) {
	start := time.Now()

	var validationErr error
	st, err := s.update(ctx, sessionID, func(st State) State {
		st, validationErr = Submit(st, draft)
		if validationErr == nil {
			st.StartedAt = s.now()
		}
		return st
	})
	if err != nil {
		return State{}, err
	}
	if validationErr != nil {
		s.logger.Debug("Draft rejected", zap.String("session", sessionID), zap.Error(validationErr))
		s.recorder.ObserveGeneration(OutcomeValidation, draft.Diet, time.Since(start))
		return st, nil
	}

	submitted := st
	generation := st.Generation
	result, genErr := s.generator.GenerateRecipe(ctx, draft)

	outcome := outcomeOf(genErr)
	applied := false
	st, err = s.update(ctx, sessionID, func(st State) State {
		st, applied = resolve(st, generation, result, genErr)
		return st
	})
	if err != nil {
		s.logger.Warn("Failed to store generation result",
			zap.String("session", sessionID),
			zap.Uint64("generation", generation),
			zap.Error(err),
		)
		// Leave the form usable if the store recovers; otherwise the
		// loading state expires on its own.
		if _, ferr := s.update(ctx, sessionID, func(st State) State {
			st, _ = OnFailure(st, generation, err)
			return st
		}); ferr != nil {
			s.logger.Debug("Failed to store generation failure", zap.String("session", sessionID), zap.Error(ferr))
		}
		return State{}, err
	}

	if !applied {
		// A newer submission owns the stored state. The caller still gets
		// its own answer so its form is not left loading.
		outcome = OutcomeStale
		st, _ = resolve(submitted, generation, result, genErr)
	}
	if genErr != nil {
		s.logger.Debug("Recipe generation failed",
			zap.String("session", sessionID),
			zap.Uint64("generation", generation),
			zap.String("code", string(errors.GetCode(genErr))),
			zap.Error(genErr),
		)
	}
	s.recorder.ObserveGeneration(outcome, draft.Diet, time.Since(start))

	return st, nil
}

func (s *Service) update(ctx context.Context, sessionID string, fn func(State) State) (State, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load form state: %w", err)
	}

	st = fn(st)

	// The browser may be gone by now; the resolved state must still be
	// stored so the next page load shows it.
	if err := s.store.Save(context.WithoutCancel(ctx), sessionID, st); err != nil {
		return State{}, fmt.Errorf("failed to save form state: %w", err)
	}
	return st, nil
}

func (s *Service) expire(st State) State {
	return Expire(st, s.now(), s.pendingTimeout)
}

func resolve(st State, generation uint64, r *recipe.Recipe, err error) (State, bool) {
	if err != nil {
		return OnFailure(st, generation, err)
	}
	return OnSuccess(st, generation, r)
}

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, errors.CodeParse):
		return OutcomeParse
	default:
		return OutcomeTransport
	}
}
