package domain

import "time"

type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// SessionReport is the outcome of one send or receive session. It is produced even when the
// session ended with an error, carrying whatever was measured until then.
type SessionReport struct {
	SessionID     string        `json:"session_id"`
	Role          Role          `json:"role"`
	Framing       string        `json:"framing"`
	StartedAt     time.Time     `json:"started_at"`
	Summary       Summary       `json:"summary"`
	Records       []BlockRecord `json:"records,omitempty"`
	Complete      bool          `json:"complete"`
	FramingErrors int           `json:"framing_errors"`
	Error         string        `json:"error,omitempty"`
}

// Fail records err on the report and returns it unchanged.
func (r *SessionReport) Fail(err error) error {
	if err != nil {
		r.Error = err.Error()
	}
	return err
}
