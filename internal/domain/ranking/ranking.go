// Package ranking derives leaderboard views from a store snapshot.
//
// Ordering: score DESC, then earlier creation time, then submission id ASC.
// The order is total, so equal inputs always produce equal output.
// Positions are sequential (1..n); equal scores do not share a position.
package ranking

import (
	"sort"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/metrics"
)

// DefaultLimit truncates every ranking.
const DefaultLimit = 100

// Source is a consistent, read-only view of the submission history.
type Source interface {
	All() []model.Submission
	CountFor(participantID string, taskID int) int
	CountForParticipant(participantID string) int
}

// Engine computes rankings. It holds no state besides its configuration.
type Engine struct {
	limit int
}

// NewEngine returns an engine with the given options applied.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{limit: DefaultLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limit returns the truncation size.
func (e *Engine) Limit() int { return e.limit }

// Rank returns the scored submissions matching f, best first, truncated to
// the engine limit. Counts are taken from the whole source, not the filtered set.
func (e *Engine) Rank(src Source, f Filter) []types.RankedEntry {
	return e.rank(src, f, e.limit)
}

// RankByTask ranks every task that has at least one scored submission,
// keeping the best limit entries of each. Tasks listed in always get a
// key even when nothing is scored yet.
func (e *Engine) RankByTask(src Source, limit int, always ...int) map[int][]types.RankedEntry {
	if limit <= 0 || limit > e.limit {
		limit = e.limit
	}
	tasks := make(map[int]struct{}, len(always))
	for _, task := range always {
		tasks[task] = struct{}{}
	}
	for _, sub := range src.All() {
		if sub.Ranked() {
			tasks[sub.TaskID] = struct{}{}
		}
	}
	out := make(map[int][]types.RankedEntry, len(tasks))
	for task := range tasks {
		out[task] = e.rank(src, ForTask(task), limit)
	}
	return out
}

func (e *Engine) rank(src Source, f Filter, limit int) []types.RankedEntry {
	start := time.Now()
	defer func() {
		metrics.RecordRanking(f.kind(), float64(time.Since(start).Microseconds())/1000)
	}()

	all := src.All()
	kept := make([]model.Submission, 0, len(all))
	for _, sub := range all {
		if sub.Ranked() && f.Match(sub.TaskID) {
			kept = append(kept, sub)
		}
	}
	sortSubmissions(kept)
	if len(kept) > limit {
		kept = kept[:limit]
	}

	entries := make([]types.RankedEntry, len(kept))
	for i, sub := range kept {
		entries[i] = types.RankedEntry{
			Position:           i + 1,
			SubmissionID:       sub.ID,
			TaskID:             sub.TaskID,
			ParticipantID:      sub.ParticipantID,
			Score:              sub.Score,
			Timestamp:          sub.CreatedAt,
			SubmissionsForTask: src.CountFor(sub.ParticipantID, sub.TaskID),
			SubmissionsTotal:   src.CountForParticipant(sub.ParticipantID),
		}
	}
	return entries
}

// sortSubmissions orders by score desc, then created asc, then id asc.
func sortSubmissions(subs []model.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
