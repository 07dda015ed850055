package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/cache"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type editFixture struct {
	sessionID uuid.UUID
	gameID    uuid.UUID
	actorID   uuid.UUID
	alice     uuid.UUID
	bob       uuid.UUID
	aliceRow  uuid.UUID
	bobRow    uuid.UUID
}

func newEditFixture() editFixture {
	return editFixture{
		sessionID: uuid.New(),
		gameID:    uuid.New(),
		actorID:   uuid.New(),
		alice:     uuid.New(),
		bob:       uuid.New(),
		aliceRow:  uuid.New(),
		bobRow:    uuid.New(),
	}
}

func (f editFixture) aggregate() *domain.SessionAggregate {
	return &domain.SessionAggregate{
		ID:              f.sessionID,
		GameID:          f.gameID,
		GameName:        "Catan",
		Date:            time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Location:        "Kitchen table",
		DurationMinutes: 60,
		Players: []domain.SessionPlayer{
			{PlayerID: f.alice, ScoreID: f.aliceRow, Name: "Alice", Score: 10, IsWinner: true},
			{PlayerID: f.bob, ScoreID: f.bobRow, Name: "Bob", Score: 7, IsWinner: false},
		},
	}
}

// proposal returns an edit identical to the aggregate.
func proposal(agg *domain.SessionAggregate) domain.SessionEdit {
	edit := domain.SessionEdit{
		GameName:        agg.GameName,
		Date:            agg.Date,
		Location:        agg.Location,
		DurationMinutes: agg.DurationMinutes,
		Highlights:      agg.Highlights,
	}
	for _, p := range agg.Players {
		edit.Players = append(edit.Players, domain.PlayerEdit{
			PlayerID: p.PlayerID,
			ScoreID:  p.ScoreID,
			Name:     p.Name,
			Score:    p.Score,
			IsWinner: p.IsWinner,
		})
	}
	return edit
}

func newEditService(gw *MockEditGateway, inv *MockInvalidator) *EditService {
	return NewEditService(gw, inv, time.Second)
}

func TestProceedCommit_NoChanges(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	es := svc.BeginEdit(f.aggregate())
	result, err := svc.ProceedCommit(context.Background(), es, proposal(f.aggregate()), f.actorID)

	require.NoError(t, err)
	assert.Equal(t, StatusNoChanges, result.Status)
	gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "RetagGame", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "RetagPlayer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "UpdateScore", mock.Anything, mock.Anything, mock.Anything)
	inv.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestProceedCommit_NoChanges_WhitespaceOnly(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.GameName = "  Catan  "
	edit.Players[0].Name = " Alice "

	result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)

	require.NoError(t, err)
	assert.Equal(t, StatusNoChanges, result.Status)
	gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
}

func TestProceedCommit_SessionDeleted(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	svc := newEditService(gw, new(MockInvalidator))

	agg := f.aggregate()
	deleted := time.Now()
	agg.DeletedAt = &deleted

	es := svc.BeginEdit(agg)
	edit := proposal(f.aggregate())
	edit.DurationMinutes = 90

	_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	assert.ErrorIs(t, err, ErrSessionDeleted)
	gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
}

func TestProceedCommit_Validation(t *testing.T) {
	f := newEditFixture()

	t.Run("game name too short", func(t *testing.T) {
		gw := new(MockEditGateway)
		svc := newEditService(gw, new(MockInvalidator))
		es := svc.BeginEdit(f.aggregate())

		edit := proposal(f.aggregate())
		edit.GameName = " C "

		_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		assert.ErrorIs(t, err, ErrInvalidGameName)
		gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
		gw.AssertNotCalled(t, "RetagGame", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("keeping the original short name is not checked", func(t *testing.T) {
		gw := new(MockEditGateway)
		inv := new(MockInvalidator)
		svc := newEditService(gw, inv)

		agg := f.aggregate()
		agg.GameName = "X" // legacy row predating the length rule
		es := svc.BeginEdit(agg)

		edit := proposal(agg)
		edit.DurationMinutes = 90

		gw.On("UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything).Return(nil)
		inv.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

		result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, result.Status)
	})

	t.Run("blank player name", func(t *testing.T) {
		gw := new(MockEditGateway)
		svc := newEditService(gw, new(MockInvalidator))
		es := svc.BeginEdit(f.aggregate())

		edit := proposal(f.aggregate())
		edit.Players[1].Name = "   "

		_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		assert.ErrorIs(t, err, ErrInvalidPlayerName)
		gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate player names case-folded", func(t *testing.T) {
		gw := new(MockEditGateway)
		svc := newEditService(gw, new(MockInvalidator))
		es := svc.BeginEdit(f.aggregate())

		edit := proposal(f.aggregate())
		edit.Players[1].Name = " ALICE "

		_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		assert.ErrorIs(t, err, ErrDuplicatePlayerName)
		gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
		gw.AssertNotCalled(t, "RetagPlayer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProceedCommit_ScoreRowPairing(t *testing.T) {
	f := newEditFixture()

	t.Run("swapped score rows rejected", func(t *testing.T) {
		gw := new(MockEditGateway)
		svc := newEditService(gw, new(MockInvalidator))
		es := svc.BeginEdit(f.aggregate())

		// Alice's and Bob's score rows traded owners, with one score
		// bumped so the proposal is not a no-op.
		edit := proposal(f.aggregate())
		edit.Players[0].ScoreID = f.bobRow
		edit.Players[1].ScoreID = f.aliceRow
		edit.Players[1].Score = 11

		_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		assert.ErrorIs(t, err, ErrScoreRowMismatch)
		gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
		gw.AssertNotCalled(t, "UpdateScore", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown player rejected", func(t *testing.T) {
		gw := new(MockEditGateway)
		svc := newEditService(gw, new(MockInvalidator))
		es := svc.BeginEdit(f.aggregate())

		edit := proposal(f.aggregate())
		edit.Players[1].PlayerID = uuid.New()
		edit.DurationMinutes = 90

		_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		assert.ErrorIs(t, err, ErrScoreRowMismatch)
		gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("foreign score row rejected", func(t *testing.T) {
		gw := new(MockEditGateway)
		svc := newEditService(gw, new(MockInvalidator))
		es := svc.BeginEdit(f.aggregate())

		edit := proposal(f.aggregate())
		edit.Players[1].ScoreID = uuid.New()
		edit.Players[1].Score = 9

		_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		assert.ErrorIs(t, err, ErrScoreRowMismatch)
		gw.AssertNotCalled(t, "UpdateScore", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProceedCommit_SingleFlight(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	entered := make(chan struct{})
	release := make(chan struct{})
	gw.On("UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).Return(nil)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.DurationMinutes = 90

	type outcome struct {
		result *CommitResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
		first <- outcome{r, err}
	}()

	<-entered

	// Second call while the first is in flight: rejected synchronously.
	_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	assert.ErrorIs(t, err, ErrEditInProgress)

	close(release)
	out := <-first
	require.NoError(t, out.err)
	assert.Equal(t, StatusSuccess, out.result.Status)

	// Lock released: a later commit is accepted again.
	_, err = svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	assert.NotErrorIs(t, err, ErrEditInProgress)
}

func TestProceedCommit_PlayerRetag(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	bobbyID := uuid.New()
	gw.On("RetagPlayer", mock.Anything, f.sessionID, f.bob, "Bobby").Return(bobbyID, nil)
	gw.On("UpdateScore", mock.Anything, f.bobRow, domain.ScoreUpdate{Score: 9, IsWinner: false}).Return(nil)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.Players[1].Name = "Bobby"
	edit.Players[1].Score = 9

	result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, cache.KindPlayerRetag, result.Kind)
	assert.Equal(t, bobbyID, result.RetaggedPlayers[f.bob])

	// Alice's row was untouched; Bob's write is keyed by his score row,
	// not his player id, so the row's history survives the retag.
	gw.AssertNotCalled(t, "UpdateSessionScalars", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "RetagGame", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "UpdateScore", mock.Anything, f.aliceRow, mock.Anything)
	gw.AssertExpectations(t)
}

func TestProceedCommit_WinnerToggleNormalization(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	gw.On("UpdateScore", mock.Anything, f.aliceRow, domain.ScoreUpdate{Score: 10, IsWinner: false}).Return(nil)
	gw.On("UpdateScore", mock.Anything, f.bobRow, domain.ScoreUpdate{Score: 7, IsWinner: true}).Return(nil)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	// Set Bob as winner without clearing Alice's flag.
	edit.Players[1].IsWinner = true

	result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)

	assert.Equal(t, cache.KindScoreUpdate, result.Kind)
	gw.AssertExpectations(t)
}

func TestProceedCommit_GameRelinkOrdering(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	var calls []string
	newGameID := uuid.New()

	gw.On("UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything).
		Run(func(mock.Arguments) { calls = append(calls, "scalars") }).Return(nil)
	gw.On("RetagGame", mock.Anything, f.sessionID, "Catan: Seafarers").
		Run(func(mock.Arguments) { calls = append(calls, "retag_game") }).Return(newGameID, nil)
	inv.On("Invalidate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls = append(calls, "invalidate") }).Return(nil)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.GameName = "Catan: Seafarers"
	edit.DurationMinutes = 90

	result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)

	assert.Equal(t, []string{"scalars", "retag_game", "invalidate"}, calls)
	assert.Equal(t, cache.KindGameRelink, result.Kind)
	assert.Equal(t, newGameID, result.GameID)

	// Scores were identical, so no score writes were issued.
	gw.AssertNotCalled(t, "UpdateScore", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "RetagPlayer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// The relink invalidates both game histories.
	assert.Contains(t, result.InvalidatedKeys, cache.GameHistoryKey(f.gameID))
	assert.Contains(t, result.InvalidatedKeys, cache.GameHistoryKey(newGameID))
}

func TestProceedCommit_ScoreUpdateKeys(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	gw.On("UpdateScore", mock.Anything, f.bobRow, domain.ScoreUpdate{Score: 9, IsWinner: false}).Return(nil)

	var keys []string
	inv.On("Invalidate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = args.Get(1).([]string) }).Return(nil)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.Players[1].Score = 9

	result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, cache.KindScoreUpdate, result.Kind)

	otherGame := uuid.New()
	assert.Contains(t, keys, cache.PlayerStatsKey(f.actorID))
	assert.Contains(t, keys, cache.GameHistoryKey(f.gameID))
	assert.NotContains(t, keys, cache.GameHistoryKey(otherGame))
}

func TestProceedCommit_Idempotence(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	gw.On("UpdateScore", mock.Anything, f.bobRow, domain.ScoreUpdate{Score: 9, IsWinner: false}).Return(nil).Once()
	inv.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.Players[1].Score = 9

	first, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, first.Status)

	// Resubmitting the identical proposal issues no further writes.
	second, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoChanges, second.Status)

	gw.AssertExpectations(t)
	inv.AssertExpectations(t)
}

func TestProceedCommit_RemoteFailure(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	svc := newEditService(gw, new(MockInvalidator))

	cause := errors.New("connection reset")
	gw.On("UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything).Return(nil)
	gw.On("RetagGame", mock.Anything, f.sessionID, "Catan: Seafarers").Return(uuid.Nil, cause)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.GameName = "Catan: Seafarers"
	edit.DurationMinutes = 90

	_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.Error(t, err)

	var remoteErr *RemoteWriteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, StepGameRetag, remoteErr.Step)
	assert.Equal(t, "Catan: Seafarers", remoteErr.Entity)
	assert.ErrorIs(t, err, cause)

	// The scalar write before the failing step was already committed.
	gw.AssertCalled(t, "UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything)

	// The lock was released despite the failure.
	_, err = svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	assert.NotErrorIs(t, err, ErrEditInProgress)
}

func TestProceedCommit_RemoteTimeout(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	svc := NewEditService(gw, new(MockInvalidator), 10*time.Millisecond)

	// The gateway hangs until the per-call deadline cancels it.
	gw.On("UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).Return(context.DeadlineExceeded)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.DurationMinutes = 90

	_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.Error(t, err)

	var remoteErr *RemoteWriteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, StepMetadata, remoteErr.Step)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProceedCommit_InvalidationFailureDoesNotFailCommit(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	gw.On("UpdateScore", mock.Anything, f.bobRow, mock.Anything).Return(nil)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.Players[1].Score = 9

	result, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Error(t, result.InvalidationErr)
}

func TestProceedCommit_EmptyOptionalFieldsWrittenAsAbsent(t *testing.T) {
	f := newEditFixture()
	gw := new(MockEditGateway)
	inv := new(MockInvalidator)
	svc := newEditService(gw, inv)

	var upd domain.SessionScalarUpdate
	gw.On("UpdateSessionScalars", mock.Anything, f.sessionID, mock.Anything).
		Run(func(args mock.Arguments) { upd = args.Get(2).(domain.SessionScalarUpdate) }).Return(nil)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	es := svc.BeginEdit(f.aggregate())
	edit := proposal(f.aggregate())
	edit.Location = "   "
	edit.Highlights = ""

	_, err := svc.ProceedCommit(context.Background(), es, edit, f.actorID)
	require.NoError(t, err)

	assert.Nil(t, upd.Location)
	assert.Nil(t, upd.Highlights)
	assert.Equal(t, "2026-03-14", upd.Date)
}
