package notifyfake

import (
	"context"
	"slices"
	"sync"

	"github.com/clone-prom-team-2025/server/notify"
)

var _ notify.ForcedLogoutNotifier = (*Recorder)(nil)

// Recorder records every session id it is asked to notify. Err, when set, is
// returned from every call after recording.
type Recorder struct {
	lock     sync.Mutex
	sessions []string
	Err      error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) NotifyForcedLogout(_ context.Context, sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.sessions = append(r.sessions, sessionID)
	return r.Err
}

// Sessions returns the notified session ids in call order.
func (r *Recorder) Sessions() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return slices.Clone(r.sessions)
}
