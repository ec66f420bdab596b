package repository

import (
	"github.com/okian/podium/internal/domain/model"
)

type pairKey struct {
	participant string
	task        int
}

// Snapshot is an immutable, point-in-time view of the store. A published
// snapshot is never modified; writers build and publish a new one.
type Snapshot struct {
	version       uint64
	submissions   []model.Submission // insertion order
	byID          map[string]int
	byPair        map[pairKey]int
	byParticipant map[string]int
	pending       int
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		byID:          map[string]int{},
		byPair:        map[pairKey]int{},
		byParticipant: map[string]int{},
	}
}

// Version increases by one with every published write.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of submissions.
func (s *Snapshot) Len() int { return len(s.submissions) }

// Pending returns the number of submissions without a result.
func (s *Snapshot) Pending() int { return s.pending }

// All returns the submissions in insertion order. The slice is shared and
// must not be modified.
func (s *Snapshot) All() []model.Submission { return s.submissions }

// Get returns the submission with id.
func (s *Snapshot) Get(id string) (model.Submission, bool) {
	i, ok := s.byID[id]
	if !ok {
		return model.Submission{}, false
	}
	return s.submissions[i], true
}

// CountFor returns the submissions stored for a (participant, task) pair.
// Every stored submission passed admission, so all of them count.
func (s *Snapshot) CountFor(participantID string, taskID int) int {
	return s.byPair[pairKey{participant: participantID, task: taskID}]
}

// CountForParticipant returns the submissions stored for a participant across tasks.
func (s *Snapshot) CountForParticipant(participantID string) int {
	return s.byParticipant[participantID]
}

// withAppended returns a copy of s holding sub as its last submission.
func (s *Snapshot) withAppended(sub model.Submission) *Snapshot {
	next := &Snapshot{
		version:       s.version + 1,
		submissions:   make([]model.Submission, len(s.submissions), len(s.submissions)+1),
		byID:          make(map[string]int, len(s.byID)+1),
		byPair:        make(map[pairKey]int, len(s.byPair)+1),
		byParticipant: make(map[string]int, len(s.byParticipant)+1),
		pending:       s.pending,
	}
	copy(next.submissions, s.submissions)
	for k, v := range s.byID {
		next.byID[k] = v
	}
	for k, v := range s.byPair {
		next.byPair[k] = v
	}
	for k, v := range s.byParticipant {
		next.byParticipant[k] = v
	}

	next.byID[sub.ID] = len(next.submissions)
	next.submissions = append(next.submissions, sub)
	next.byPair[pairKey{participant: sub.ParticipantID, task: sub.TaskID}]++
	next.byParticipant[sub.ParticipantID]++
	if !sub.Status.Final() {
		next.pending++
	}
	return next
}

// withReplaced returns a copy of s where the submission at i is sub. Counts
// are shared because a result never changes quota consumption.
func (s *Snapshot) withReplaced(i int, sub model.Submission) *Snapshot {
	next := &Snapshot{
		version:       s.version + 1,
		submissions:   make([]model.Submission, len(s.submissions)),
		byID:          s.byID,
		byPair:        s.byPair,
		byParticipant: s.byParticipant,
		pending:       s.pending,
	}
	copy(next.submissions, s.submissions)
	if !next.submissions[i].Status.Final() && sub.Status.Final() {
		next.pending--
	}
	next.submissions[i] = sub
	return next
}
