package attempt

import (
	"time"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/assessment"
	"github.com/abhisek/qcm/internal/outbox"
)

// startedMsg is sent when the start call returns.
type startedMsg struct {
	Resp *api.StartResponse
	Err  error
}

// finishedMsg is sent when the finish call returns. FlushErr is set when
// pending answers could not be delivered before scoring.
type finishedMsg struct {
	Result   *assessment.Result
	Err      error
	FlushErr error
}

// syncMsg carries one outbox delivery result. Closed means the outbox
// shut down and no more results follow.
type syncMsg struct {
	Result outbox.Result
	Closed bool
}

// timerTickMsg is sent every second to update the elapsed time.
type timerTickMsg time.Time
