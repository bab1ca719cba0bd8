package internaltypes

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Job is an immutable snapshot of a pending job, built by the host before each scheduling round.
type Job struct {
	id          string
	requirement ResourceList
	// Higher is scheduled first. May be zero or negative.
	reward float64
	// Compared lexicographically, higher first, when rewards are equal.
	rewardTieBreak []float64
}

func NewJob(id string, requirement ResourceList, reward float64, rewardTieBreak ...float64) *Job {
	return &Job{
		id:             id,
		requirement:    requirement,
		reward:         reward,
		rewardTieBreak: slices.Clone(rewardTieBreak),
	}
}

func (job *Job) Id() string {
	return job.id
}

func (job *Job) Requirement() ResourceList {
	return job.requirement
}

func (job *Job) Reward() float64 {
	return job.reward
}

func (job *Job) RewardTieBreak() []float64 {
	return job.rewardTieBreak
}

// WithReward returns a copy of the job with a different reward.
func (job *Job) WithReward(reward float64, rewardTieBreak ...float64) *Job {
	j := *job
	j.reward = reward
	j.rewardTieBreak = slices.Clone(rewardTieBreak)
	return &j
}

func (job *Job) String() string {
	return fmt.Sprintf("%s{requirement: %s, reward: %v}", job.id, job.requirement.String(), job.reward)
}
