package simulator

import "time"

// Event records that a running job finishes at a given simulated time,
// at which point its resources are returned to the cluster.
type Event struct {
	time time.Time
	// Breaks ties between completions at the same time, so jobs finish in the order they were admitted.
	sequenceNumber int
	jobId          string
	// Position in the EventLog; -1 once popped.
	index int
}

// EventLog is a min-heap of pending job completions, earliest first.
// Use it through container/heap.
type EventLog []Event

func (el EventLog) Len() int { return len(el) }

func (el EventLog) Less(i, j int) bool {
	if !el[i].time.Equal(el[j].time) {
		return el[i].time.Before(el[j].time)
	}
	return el[i].sequenceNumber < el[j].sequenceNumber
}

func (el EventLog) Swap(i, j int) {
	el[i], el[j] = el[j], el[i]
	el[i].index = i
	el[j].index = j
}

func (el *EventLog) Push(x any) {
	event := x.(Event)
	event.index = len(*el)
	*el = append(*el, event)
}

func (el *EventLog) Pop() any {
	old := *el
	last := len(old) - 1
	event := old[last]
	old[last] = Event{}
	event.index = -1
	*el = old[:last]
	return event
}

// nextCompletionTime returns the time of the earliest pending completion.
func (el EventLog) nextCompletionTime() (time.Time, bool) {
	if len(el) == 0 {
		return time.Time{}, false
	}
	return el[0].time, true
}
