package client

// Callbacks is what the UI layer subscribes to. All fields are optional.
type Callbacks struct {
	OnParticipantJoined func(userID string)
	OnParticipantLeft   func(userID string)
	// OnPeerConnected fires when a direct audio path to a member is up.
	OnPeerConnected func(userID string)
	OnPeerClosed    func(userID string)
	// OnSpeaking reports remote speaking transitions when level
	// detection is enabled.
	OnSpeaking func(userID string, speaking bool)
	// OnError receives non-fatal session errors and fatal transport ones.
	OnError func(err error)
}

func (c Callbacks) participantJoined(id string) {
	if c.OnParticipantJoined != nil {
		c.OnParticipantJoined(id)
	}
}

func (c Callbacks) participantLeft(id string) {
	if c.OnParticipantLeft != nil {
		c.OnParticipantLeft(id)
	}
}

func (c Callbacks) peerConnected(id string) {
	if c.OnPeerConnected != nil {
		c.OnPeerConnected(id)
	}
}

func (c Callbacks) peerClosed(id string) {
	if c.OnPeerClosed != nil {
		c.OnPeerClosed(id)
	}
}

func (c Callbacks) speaking(id string, speaking bool) {
	if c.OnSpeaking != nil {
		c.OnSpeaking(id, speaking)
	}
}

func (c Callbacks) error(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
