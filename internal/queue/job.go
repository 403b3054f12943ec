package queue

import "context"

// Job is a unit of asynchronous work, typically one backend call issued on
// behalf of a session store.
//
// Jobs sharing a non-empty Key replace each other while they wait: only the
// job with the highest Token for a key is handed to a worker. A replaced job
// never runs; its Superseded callback is invoked instead.
type Job struct {
	Name       string
	Key        string
	Token      uint64
	Run        func(ctx context.Context)
	Superseded func()
}

func (j Job) replaces(other Job) bool {
	return j.Key != "" && j.Key == other.Key && j.Token > other.Token
}
