package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrUnknownChannel = fmt.Errorf("unknown channel")
	ErrNotAMember     = fmt.Errorf("sender is not a member of the channel")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
)
