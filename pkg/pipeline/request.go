package pipeline

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-propaganda-spotter/pkg/types"
)

// state tracks a request through the pipeline. A request either advances
// Uploaded -> Captioned -> Scored -> Attended -> Composed -> Done or drops to
// Failed from wherever it was.
type state string

const (
	stateUploaded  state = "uploaded"
	stateCaptioned state = "captioned"
	stateScored    state = "scored"
	stateAttended  state = "attended"
	stateComposed  state = "composed"
	stateDone      state = "done"
	stateFailed    state = "failed"
)

// request holds one analysis run's state and its scoped logger.
type request struct {
	id     string
	state  state
	log    *logrus.Entry
	report *types.AnalysisReport
}

func newRequest(log *logrus.Logger) *request {
	id := uuid.NewString()
	return &request{
		id:    id,
		state: stateUploaded,
		log:   log.WithField("request_id", id),
	}
}

func (r *request) advance(s state) {
	r.state = s
	r.log.WithField("state", s).Debug("Pipeline state advanced")
}

// fail terminates the request with a failed report whose message is suitable
// for direct display.
func (r *request) fail(err error, message string) *request {
	r.state = stateFailed
	r.log.WithError(err).Error("Analysis failed")
	r.report = &types.AnalysisReport{
		Success:      false,
		ErrorMessage: message,
	}
	return r
}
