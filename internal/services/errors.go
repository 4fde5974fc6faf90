package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic handling with errors.Is.
var (
	// ErrCredentialExpired means the session-scoped decryption key is gone
	// (logged out, evicted, or never present). The caller must force a
	// re-login; retrying does not help.
	ErrCredentialExpired = errors.New("credentials expired, re-login required")

	// ErrRemoteUnavailable wraps network failures and 5xx responses from
	// either remote service. The run aborted before any partial local
	// commit, so a wholesale retry is safe.
	ErrRemoteUnavailable = errors.New("remote service unavailable")
)

// PartialBatchError reports Create commands left unresolved after a batch
// submission. Not fatal: the affected tasks stay unlinked and are re-created
// on the next sync run.
type PartialBatchError struct {
	Submitted  int
	Unresolved int
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("batch left %d of %d creates unresolved", e.Unresolved, e.Submitted)
}

// PropagationError reports shared-subtask mirrors that did not accept a
// status correction. The authoritative status stands as long as at least
// one mirror succeeded.
type PropagationError struct {
	SubtaskID int64
	Failed    []string // mirror todoist ids
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("subtask %d: mirrors not corrected: %s",
		e.SubtaskID, strings.Join(e.Failed, ", "))
}
