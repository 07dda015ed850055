// Package cache derives the cache keys a committed edit must invalidate.
// Derivation is a pure function of the edit kind and its context, so the
// presentation and storage layers can share one key scheme without either
// knowing how the other caches.
package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EditKind classifies a committed edit for invalidation purposes.
type EditKind string

const (
	// KindGameRelink marks a commit that repointed the session to a
	// different game. Takes precedence over all other kinds.
	KindGameRelink EditKind = "gameRelink"

	// KindPlayerRetag marks a commit that repointed one or more score
	// rows to different player identities.
	KindPlayerRetag EditKind = "playerRetag"

	// KindScoreUpdate marks a commit that changed only scores or the
	// winner flag.
	KindScoreUpdate EditKind = "scoreUpdate"

	// KindSessionMetadata marks a commit that touched only the session's
	// scalar fields.
	KindSessionMetadata EditKind = "sessionMetadata"
)

// Key prefixes. The stats cache and the invalidator both build keys
// through these helpers so the two sides can never drift apart.
const (
	playerStatsPrefix = "stats:player:"
	mostPlayedPrefix  = "stats:mostplayed:"
	dashboardPrefix   = "dashboard:player:"
	gameHistoryPrefix = "history:game:"
)

// PlayerStatsKey is the cache key for a player's aggregate stats.
func PlayerStatsKey(playerID uuid.UUID) string {
	return playerStatsPrefix + playerID.String()
}

// MostPlayedKey is the cache key for a player's most-played-game view.
func MostPlayedKey(playerID uuid.UUID) string {
	return mostPlayedPrefix + playerID.String()
}

// DashboardKey is the cache key for a player's dashboard view.
func DashboardKey(playerID uuid.UUID) string {
	return dashboardPrefix + playerID.String()
}

// DashboardDateKey is the date-scoped dashboard key.
func DashboardDateKey(playerID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s%s:%s", dashboardPrefix, playerID, date.Format("2006-01-02"))
}

// GameHistoryKey is the cache key for a game's play history.
func GameHistoryKey(gameID uuid.UUID) string {
	return gameHistoryPrefix + gameID.String()
}

// Context carries the identifiers an edit touched. Zero-valued fields are
// treated as absent.
type Context struct {
	PlayerID  uuid.UUID
	GameID    uuid.UUID
	OldGameID uuid.UUID
	NewGameID uuid.UUID
	Date      time.Time
}

// Keys returns the ordered, de-duplicated set of cache keys to refresh
// after an edit of the given kind. Base player-scoped keys are always
// included; the date-scoped dashboard key whenever a date is present;
// game-history keys according to the kind.
func Keys(kind EditKind, c Context) []string {
	keys := []string{
		PlayerStatsKey(c.PlayerID),
		MostPlayedKey(c.PlayerID),
		DashboardKey(c.PlayerID),
	}
	if !c.Date.IsZero() {
		keys = append(keys, DashboardDateKey(c.PlayerID, c.Date))
	}

	switch kind {
	case KindGameRelink:
		if c.OldGameID != uuid.Nil {
			keys = append(keys, GameHistoryKey(c.OldGameID))
		}
		if c.NewGameID != uuid.Nil {
			keys = append(keys, GameHistoryKey(c.NewGameID))
		}
	case KindScoreUpdate, KindPlayerRetag:
		if c.GameID != uuid.Nil {
			keys = append(keys, GameHistoryKey(c.GameID))
		}
	}

	return dedupe(keys)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
