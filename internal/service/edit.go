package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/cache"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/rs/zerolog/log"
)

// EditService commits proposed session edits against the persistence
// gateway. Steps run strictly in order (scalars, game retag, player
// retags, score writes) because each step can depend on identifiers the
// previous one produced; there is no transaction spanning them.
type EditService struct {
	gateway       domain.EditGateway
	invalidator   domain.CacheInvalidator
	remoteTimeout time.Duration
}

// NewEditService creates a new edit service
func NewEditService(gateway domain.EditGateway, invalidator domain.CacheInvalidator, remoteTimeout time.Duration) *EditService {
	return &EditService{
		gateway:       gateway,
		invalidator:   invalidator,
		remoteTimeout: remoteTimeout,
	}
}

// EditSession holds the immutable snapshot of an aggregate taken when
// editing began, plus the single-flight guard. One EditSession is owned
// by one editing surface; instances are not shared.
type EditSession struct {
	original *domain.SessionAggregate
	saving   atomic.Bool
}

// Original returns the snapshot the edit is diffed against.
func (es *EditSession) Original() *domain.SessionAggregate {
	return es.original
}

// BeginEdit snapshots the aggregate for later diffing. No remote calls.
func (s *EditService) BeginEdit(agg *domain.SessionAggregate) *EditSession {
	return &EditSession{original: agg.Clone()}
}

// CommitStatus is the terminal state of a commit attempt that did not
// fail. Failures are reported as errors.
type CommitStatus string

const (
	StatusSuccess   CommitStatus = "success"
	StatusNoChanges CommitStatus = "no_changes"
)

// CommitResult describes a completed ProceedCommit call.
type CommitResult struct {
	Status CommitStatus   `json:"status"`
	Kind   cache.EditKind `json:"kind,omitempty"`

	// GameID is the session's game after the commit (the retag target
	// when the game was relinked).
	GameID uuid.UUID `json:"game_id,omitempty"`

	// RetaggedPlayers maps old player ids to the identities the retag
	// procedures produced.
	RetaggedPlayers map[uuid.UUID]uuid.UUID `json:"retagged_players,omitempty"`

	// InvalidatedKeys is the key set handed to the cache invalidator.
	InvalidatedKeys []string `json:"invalidated_keys,omitempty"`

	// InvalidationErr records a best-effort invalidation failure. It
	// never flips a successful commit into a failure.
	InvalidationErr error `json:"-"`
}

// ProceedCommit validates the proposed state against the snapshot,
// executes the minimal ordered set of remote writes, and invalidates
// derived caches. actingPlayerID identifies whose dashboards the edit
// affects; it is threaded explicitly rather than read from ambient state.
//
// A second call while one is in flight returns ErrEditInProgress without
// touching the network.
func (s *EditService) ProceedCommit(ctx context.Context, es *EditSession, proposed domain.SessionEdit, actingPlayerID uuid.UUID) (*CommitResult, error) {
	if !es.saving.CompareAndSwap(false, true) {
		return nil, ErrEditInProgress
	}
	defer es.saving.Store(false)

	original := es.original
	if original.Deleted() {
		return nil, ErrSessionDeleted
	}

	normalizeWinners(original, proposed.Players)

	d := diff(original, &proposed)
	if !d.any() {
		return &CommitResult{Status: StatusNoChanges}, nil
	}

	if err := validate(original, &proposed); err != nil {
		return nil, err
	}

	// Step 1: scalar metadata, one statement. A failure here aborts the
	// commit before anything else is written.
	if d.metadataChanged {
		upd := domain.SessionScalarUpdate{
			Date:            proposed.Date.Format(domain.DateFormat),
			Location:        presentOrNil(proposed.Location),
			DurationMinutes: proposed.DurationMinutes,
			Highlights:      presentOrNil(proposed.Highlights),
		}
		if err := s.updateScalars(ctx, original.ID, upd); err != nil {
			return nil, &RemoteWriteError{Step: StepMetadata, Err: err}
		}
	}

	// Step 2: game retag. Earlier scalar writes stay committed if this
	// fails; the error names the step so the caller can say so.
	gameID := original.GameID
	if d.gameChanged {
		newID, err := s.retagGame(ctx, original.ID, strings.TrimSpace(proposed.GameName))
		if err != nil {
			return nil, &RemoteWriteError{Step: StepGameRetag, Entity: strings.TrimSpace(proposed.GameName), Err: err}
		}
		gameID = newID
	}

	// Step 3: player retags, sequential. Each retag rewrites the
	// in-memory player id so later references use the new identity.
	retagged := make(map[uuid.UUID]uuid.UUID)
	for i := range proposed.Players {
		p := &proposed.Players[i]
		orig, ok := original.PlayerByID(p.PlayerID)
		if !ok {
			continue
		}
		newName := strings.TrimSpace(p.Name)
		if newName == strings.TrimSpace(orig.Name) {
			continue
		}
		newID, err := s.retagPlayer(ctx, original.ID, p.PlayerID, newName)
		if err != nil {
			return nil, &RemoteWriteError{Step: StepPlayerRetag, Entity: newName, Err: err}
		}
		retagged[p.PlayerID] = newID
		p.PlayerID = newID
	}

	// Step 4: score writes, keyed by the stable score id, never by the
	// (possibly retagged) player id. Unchanged rows are skipped.
	for _, p := range proposed.Players {
		orig, ok := playerByScoreID(original, p.ScoreID)
		if !ok || (orig.Score == p.Score && orig.IsWinner == p.IsWinner) {
			continue
		}
		if err := s.updateScore(ctx, p.ScoreID, domain.ScoreUpdate{Score: p.Score, IsWinner: p.IsWinner}); err != nil {
			return nil, &RemoteWriteError{Step: StepScoreWrite, Entity: strings.TrimSpace(p.Name), Err: err}
		}
	}

	result := &CommitResult{
		Status:          StatusSuccess,
		Kind:            d.kind(),
		GameID:          gameID,
		RetaggedPlayers: retagged,
	}

	// Step 5: cache invalidation, best effort. Failure is logged and
	// recorded on the result but never fails the commit.
	cctx := cache.Context{
		PlayerID: actingPlayerID,
		Date:     proposed.Date,
	}
	if d.gameChanged {
		cctx.OldGameID = original.GameID
		cctx.NewGameID = gameID
	} else {
		cctx.GameID = original.GameID
	}
	result.InvalidatedKeys = cache.Keys(result.Kind, cctx)

	ictx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	if err := s.invalidator.Invalidate(ictx, result.InvalidatedKeys); err != nil {
		log.Warn().Err(err).Str("session_id", original.ID.String()).Msg("cache invalidation failed after commit")
		result.InvalidationErr = err
	}

	// Advance the snapshot to the committed state so resubmitting the
	// same proposal is a no-op.
	es.original = committedState(original, &proposed, gameID)

	return result, nil
}

func (s *EditService) updateScalars(ctx context.Context, sessionID uuid.UUID, upd domain.SessionScalarUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	return s.gateway.UpdateSessionScalars(ctx, sessionID, upd)
}

func (s *EditService) retagGame(ctx context.Context, sessionID uuid.UUID, newName string) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	return s.gateway.RetagGame(ctx, sessionID, newName)
}

func (s *EditService) retagPlayer(ctx context.Context, sessionID, oldPlayerID uuid.UUID, newName string) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	return s.gateway.RetagPlayer(ctx, sessionID, oldPlayerID, newName)
}

func (s *EditService) updateScore(ctx context.Context, scoreID uuid.UUID, upd domain.ScoreUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	return s.gateway.UpdateScore(ctx, scoreID, upd)
}

// normalizeWinners applies the single-winner toggle rule before
// validation: when the proposal sets the winner flag on a player who was
// not the winner in the snapshot, every other flag is cleared. With no
// newly set flag, the snapshot's winner (if still flagged) is kept and
// any stray extras are cleared.
func normalizeWinners(original *domain.SessionAggregate, players []domain.PlayerEdit) {
	winner := -1
	for i, p := range players {
		if !p.IsWinner {
			continue
		}
		orig, ok := original.PlayerByID(p.PlayerID)
		if !ok || !orig.IsWinner {
			winner = i
			break
		}
		if winner == -1 {
			winner = i
		}
	}
	for i := range players {
		players[i].IsWinner = i == winner
	}
}

func validate(original *domain.SessionAggregate, proposed *domain.SessionEdit) error {
	newGame := strings.TrimSpace(proposed.GameName)
	if newGame != strings.TrimSpace(original.GameName) && len([]rune(newGame)) < 2 {
		return fmt.Errorf("game name %q is too short: %w", newGame, ErrInvalidGameName)
	}

	seen := make(map[string]string, len(proposed.Players))
	for _, p := range proposed.Players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("player name is blank: %w", ErrInvalidPlayerName)
		}
		folded := strings.ToLower(name)
		if first, ok := seen[folded]; ok {
			return fmt.Errorf("players %q and %q share a name: %w", first, name, ErrDuplicatePlayerName)
		}
		seen[folded] = name

		// Each proposed row must keep the (player, score row) pairing
		// the snapshot holds; score rows never move between players.
		orig, ok := original.PlayerByID(p.PlayerID)
		if !ok {
			return fmt.Errorf("player %s is not part of this session: %w", p.PlayerID, ErrScoreRowMismatch)
		}
		if orig.ScoreID != p.ScoreID {
			return fmt.Errorf("score row %s does not belong to player %q: %w", p.ScoreID, name, ErrScoreRowMismatch)
		}
	}
	return nil
}

// editDiff records which parts of the proposal differ from the snapshot.
type editDiff struct {
	metadataChanged bool
	gameChanged     bool
	playersRetagged bool
	scoresChanged   bool
}

func (d editDiff) any() bool {
	return d.metadataChanged || d.gameChanged || d.playersRetagged || d.scoresChanged
}

// kind classifies the edit for cache invalidation. A game relink wins
// over everything; a retag over score changes; plain metadata last.
func (d editDiff) kind() cache.EditKind {
	switch {
	case d.gameChanged:
		return cache.KindGameRelink
	case d.playersRetagged:
		return cache.KindPlayerRetag
	case d.scoresChanged:
		return cache.KindScoreUpdate
	default:
		return cache.KindSessionMetadata
	}
}

func diff(original *domain.SessionAggregate, proposed *domain.SessionEdit) editDiff {
	var d editDiff

	d.metadataChanged = original.Date.Format(domain.DateFormat) != proposed.Date.Format(domain.DateFormat) ||
		strings.TrimSpace(original.Location) != strings.TrimSpace(proposed.Location) ||
		original.DurationMinutes != proposed.DurationMinutes ||
		strings.TrimSpace(original.Highlights) != strings.TrimSpace(proposed.Highlights)

	d.gameChanged = strings.TrimSpace(original.GameName) != strings.TrimSpace(proposed.GameName)

	for _, p := range proposed.Players {
		orig, ok := original.PlayerByID(p.PlayerID)
		if !ok {
			continue
		}
		if strings.TrimSpace(orig.Name) != strings.TrimSpace(p.Name) {
			d.playersRetagged = true
		}
		if orig.Score != p.Score || orig.IsWinner != p.IsWinner {
			d.scoresChanged = true
		}
	}
	return d
}

// committedState rebuilds the aggregate as the store now holds it, with
// retagged identities and trimmed names applied.
func committedState(original *domain.SessionAggregate, proposed *domain.SessionEdit, gameID uuid.UUID) *domain.SessionAggregate {
	next := original.Clone()
	next.GameID = gameID
	next.GameName = strings.TrimSpace(proposed.GameName)
	next.Date = proposed.Date
	next.Location = strings.TrimSpace(proposed.Location)
	next.DurationMinutes = proposed.DurationMinutes
	next.Highlights = strings.TrimSpace(proposed.Highlights)

	players := make([]domain.SessionPlayer, 0, len(proposed.Players))
	for _, p := range proposed.Players {
		players = append(players, domain.SessionPlayer{
			PlayerID: p.PlayerID,
			ScoreID:  p.ScoreID,
			Name:     strings.TrimSpace(p.Name),
			Score:    p.Score,
			IsWinner: p.IsWinner,
		})
	}
	next.Players = players
	return next
}

func playerByScoreID(agg *domain.SessionAggregate, scoreID uuid.UUID) (domain.SessionPlayer, bool) {
	for _, p := range agg.Players {
		if p.ScoreID == scoreID {
			return p, true
		}
	}
	return domain.SessionPlayer{}, false
}

func presentOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
