package timeouts

import "time"

const (
	Probe         = 300 * time.Millisecond
	Request       = 10 * time.Second
	CancelRequest = 5 * time.Second
	PollInterval  = 3 * time.Second
	WatchDefault  = 20 * time.Minute
)
