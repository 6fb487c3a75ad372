package ids

import "github.com/google/uuid"

// NewConnID returns a unique id for one websocket connection. Uniqueness only
// matters within the local gateway process.
func NewConnID() string {
	return uuid.NewString()
}
