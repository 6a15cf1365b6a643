package presence

import (
	"encoding/json"

	"github.com/starkhackai/voiceroom/internal/core"
	"github.com/starkhackai/voiceroom/internal/domain"
)

// Server→client event types.
const (
	EventMemberJoined = "member-joined"
	EventMemberLeft   = "member-left"
	EventSignal       = "signal"
)

// event is the wire shape of a room event. Signal is opaque to the
// registry; only clients interpret its contents.
type event struct {
	Type   string          `json:"type"`
	UserID domain.UserID   `json:"userId"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

func encode(ev event) (core.Frame, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
