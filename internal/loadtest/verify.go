package loadtest

import (
	"errors"
	"fmt"

	"github.com/okian/podium/internal/domain/types"
)

type pair struct {
	participant string
	task        int
}

// Verify checks accepted uploads and a full ranking against the guarantees
// the server makes: no pair above limit, counts that match the accepted
// history, and a non-increasing score order with positions 1..n.
func Verify(accepted []Accepted, entries []types.RankedEntry, limit int) error {
	perPair := make(map[pair]int)
	perParticipant := make(map[string]int)
	for _, a := range accepted {
		perPair[pair{a.ParticipantID, a.TaskID}]++
		perParticipant[a.ParticipantID]++
	}

	var errs []error
	for k, n := range perPair {
		if n > limit {
			errs = append(errs, fmt.Errorf("participant %s has %d accepted uploads for task %d (limit %d)", k.participant, n, k.task, limit))
		}
	}

	for i, e := range entries {
		if e.Position != i+1 {
			errs = append(errs, fmt.Errorf("entry %d has position %d", i, e.Position))
		}
		if i > 0 && entries[i-1].Score < e.Score {
			errs = append(errs, fmt.Errorf("entry %d score %.4f ranks below lower score %.4f", i, e.Score, entries[i-1].Score))
		}
		if want, ok := perPair[pair{e.ParticipantID, e.TaskID}]; ok && e.SubmissionsForTask != want {
			errs = append(errs, fmt.Errorf("entry %s reports %d submissions for task %d, want %d", e.SubmissionID, e.SubmissionsForTask, e.TaskID, want))
		}
		if want, ok := perParticipant[e.ParticipantID]; ok && e.SubmissionsTotal != want {
			errs = append(errs, fmt.Errorf("entry %s reports %d total submissions, want %d", e.SubmissionID, e.SubmissionsTotal, want))
		}
	}
	return errors.Join(errs...)
}
