package loadtest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Plan builds Attempts uploads for every (participant, task) pair. Every file
// carries distinct content so simulated scores differ.
func Plan(cfg *Config) []Attempt {
	ext := cfg.FileExtension
	if ext == "" {
		ext = ".py"
	}
	run := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	attempts := make([]Attempt, 0, cfg.Participants*cfg.Tasks*cfg.Attempts)
	for p := 0; p < cfg.Participants; p++ {
		participant := fmt.Sprintf("load-%s-%04d", run, p)
		for t := 0; t < cfg.Tasks; t++ {
			for a := 0; a < cfg.Attempts; a++ {
				attempts = append(attempts, Attempt{
					ParticipantID: participant,
					TaskID:        t,
					Filename:      participant + ext,
					Content:       []byte(fmt.Sprintf("# %s\nprint(%q)\n", uuid.NewString(), participant)),
				})
			}
		}
	}
	return attempts
}
