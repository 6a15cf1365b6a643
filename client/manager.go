// Package client manages a voice room session: it joins a room over the
// signaling transport and maintains one negotiation session per remote
// member until a direct audio path exists to each of them.
package client

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/starkhackai/voiceroom/client/rtc"
)

// State is the manager lifecycle state.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateActive
	StateLeaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	default:
		return "leaving"
	}
}

type Options struct {
	// ServerURL is the websocket signaling endpoint.
	ServerURL string
	// UserID comes from the external identity provider, trusted as-is.
	UserID string
	Media  Media

	// Dial defaults to DialSignaler.
	Dial Dialer
	// Negotiators defaults to PionNegotiators(rtc.DefaultConfiguration()).
	Negotiators NegotiatorFactory

	Callbacks Callbacks
	// DetectSpeaking attaches the audio-level observer to connected
	// sessions and reports through Callbacks.OnSpeaking.
	DetectSpeaking bool
}

// Manager drives the room lifecycle for one local client:
// Idle → Joining → Active → Leaving → Idle.
type Manager struct {
	opts Options

	mu           sync.Mutex
	state        State
	startGen     uint64
	roomID       string
	sig          Signaler
	audio        AudioCapture
	muted        bool
	sessions     map[string]*session
	participants map[string]struct{}
	loopCancel   context.CancelFunc
}

func NewManager(opts Options) (*Manager, error) {
	if opts.ServerURL == "" {
		return nil, errors.New("server url required")
	}
	if opts.UserID == "" {
		return nil, errors.New("user id required")
	}
	if opts.Media == nil {
		return nil, errors.New("media source required")
	}
	if opts.Dial == nil {
		opts.Dial = DialSignaler
	}
	if opts.Negotiators == nil {
		opts.Negotiators = PionNegotiators(rtc.DefaultConfiguration())
	}
	return &Manager{
		opts:         opts,
		state:        StateIdle,
		sessions:     make(map[string]*session),
		participants: make(map[string]struct{}),
	}, nil
}

// Start joins the room. Valid only from Idle. Audio is acquired first; if
// the microphone is unavailable, nothing else is touched and the manager
// stays Idle. Remote events are processed only after the manager is
// Active, so no event can race the join.
func (m *Manager) Start(ctx context.Context, roomID string) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.state = StateJoining
	// Each join attempt carries its own generation; Stop and newer Start
	// calls bump it, so a superseded attempt cannot claim the manager
	// when it resumes from a blocking acquire or dial.
	m.startGen++
	gen := m.startGen
	m.mu.Unlock()

	audio, err := m.opts.Media.AcquireAudio(ctx)
	if err != nil {
		m.setIdle()
		return &MediaAcquisitionError{Err: err}
	}

	sig, err := m.opts.Dial(ctx, m.opts.ServerURL)
	if err != nil {
		audio.Close()
		m.setIdle()
		return err
	}

	if err := sig.Send(Envelope{Type: "join", UserID: m.opts.UserID, RoomID: roomID}); err != nil {
		sig.Close()
		audio.Close()
		m.setIdle()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.state != StateJoining || m.startGen != gen {
		// Stop or a newer Start raced this join; release what this
		// attempt acquired and leave the manager to its current owner.
		m.mu.Unlock()
		cancel()
		sig.Close()
		audio.Close()
		return ErrStopped
	}
	m.roomID = roomID
	m.sig = sig
	m.audio = audio
	audio.SetEnabled(!m.muted)
	m.loopCancel = cancel
	m.state = StateActive
	m.mu.Unlock()

	log.Info().Str("module", "client").Str("room", roomID).Str("user", m.opts.UserID).Msg("joined room")
	go m.eventLoop(loopCtx, sig)
	return nil
}

func (m *Manager) setIdle() {
	m.mu.Lock()
	m.state = StateIdle
	m.mu.Unlock()
}

// Stop leaves the room: leave is sent best-effort, every session is torn
// down and the audio capture released. Idempotent, safe from any state,
// and invoked automatically when the Start context is cancelled or the
// transport drops.
func (m *Manager) Stop() {
	m.mu.Lock()
	switch m.state {
	case StateIdle, StateLeaving:
		m.mu.Unlock()
		return
	case StateJoining:
		// The in-flight Start still holds the resources; the generation
		// bump makes it release them itself when it resumes.
		m.startGen++
		m.state = StateIdle
		m.mu.Unlock()
		return
	}
	m.state = StateLeaving
	sig, audio, cancel := m.sig, m.audio, m.loopCancel
	room := m.roomID
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.participants = make(map[string]struct{})
	m.sig, m.audio, m.loopCancel = nil, nil, nil
	m.roomID = ""
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sig != nil {
		_ = sig.Send(Envelope{Type: "leave", UserID: m.opts.UserID, RoomID: room})
		sig.Close()
	}
	for _, s := range sessions {
		m.teardownSession(s)
	}
	if audio != nil {
		audio.Close()
	}

	m.setIdle()
	log.Info().Str("module", "client").Str("room", room).Msg("left room")
}

// SetMuted toggles the local audio track. Local-only: no session is torn
// down or renegotiated.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	if m.audio != nil {
		m.audio.SetEnabled(!muted)
	}
}

func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Participants returns the remote members currently reported present.
func (m *Manager) Participants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.participants))
	for id := range m.participants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Sessions returns a snapshot of session states keyed by remote id.
func (m *Manager) Sessions() map[string]SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]SessionState, len(m.sessions))
	for id, s := range m.sessions {
		out[id] = s.state
	}
	return out
}

func (m *Manager) eventLoop(ctx context.Context, sig Signaler) {
	defer m.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sig.Events():
			if !ok {
				// Channel closure during a local Stop is expected; only
				// an unsolicited drop is a transport failure.
				if ctx.Err() == nil {
					m.opts.Callbacks.error(&TransportError{Err: errors.New("signaling connection lost")})
				}
				return
			}
			m.handleEvent(ev)
		}
	}
}

func (m *Manager) handleEvent(ev Event) {
	switch ev.Type {
	case eventRoomState:
		// Join snapshot. Existing members will initiate toward us, so
		// only the participant set is updated here.
		for _, id := range ev.Members {
			if id != m.opts.UserID {
				m.addParticipant(id)
			}
		}

	case eventMemberJoined:
		if ev.UserID == m.opts.UserID {
			return
		}
		m.addParticipant(ev.UserID)
		m.ensureSession(ev.UserID, Initiator, nil)

	case eventMemberLeft:
		m.removeParticipant(ev.UserID)
		m.dropSession(ev.UserID, nil)

	case eventSignal:
		m.handleSignalEvent(ev)

	case "left", "pong":
		// Acks, nothing to do.

	default:
		log.Debug().Str("module", "client").Str("type", ev.Type).Msg("unknown event")
	}
}

func (m *Manager) handleSignalEvent(ev Event) {
	if ev.UserID == "" || len(ev.Signal) == 0 {
		log.Warn().Str("module", "client").Msg("malformed signal event, dropping")
		return
	}

	m.mu.Lock()
	s, ok := m.sessions[ev.UserID]
	var neg Negotiator
	if ok {
		neg = s.neg
	}
	m.mu.Unlock()

	if ok {
		if neg == nil {
			log.Warn().Str("module", "client").Str("remote", ev.UserID).Msg("signal for session under construction, dropping")
			return
		}
		if err := neg.Apply(ev.Signal); err != nil {
			m.dropSession(ev.UserID, &NegotiationError{Remote: ev.UserID, Err: err})
		}
		return
	}

	// No session yet. Only an offer may create one; anything else is a
	// stale fragment for a session the peer already tore down.
	if !rtc.IsOffer(ev.Signal) {
		log.Debug().Str("module", "client").Str("remote", ev.UserID).Msg("stale fragment without session, dropping")
		return
	}
	m.addParticipant(ev.UserID)
	m.ensureSession(ev.UserID, Responder, ev.Signal)
}

// ensureSession creates at most one session per remote id. The map entry
// is reserved under the lock before the negotiator is built, so a racing
// member-joined and inbound offer for the same id yield a single session.
func (m *Manager) ensureSession(remote string, role Role, offer []byte) {
	m.mu.Lock()
	if m.state != StateActive || m.audio == nil {
		m.mu.Unlock()
		return
	}
	if _, ok := m.sessions[remote]; ok {
		m.mu.Unlock()
		return
	}
	s := &session{remote: remote, role: role, state: SessionCreated}
	m.sessions[remote] = s
	sig := m.sig
	track := m.audio.Track()
	m.mu.Unlock()

	neg, err := m.opts.Negotiators(role, track, m.sessionCallbacks(remote, sig))
	if err != nil {
		m.dropSession(remote, &NegotiationError{Remote: remote, Err: err})
		return
	}

	m.mu.Lock()
	if m.sessions[remote] != s {
		// Torn down while the negotiator was being built.
		m.mu.Unlock()
		neg.Close()
		return
	}
	s.neg = neg
	s.state = SessionNegotiating
	m.mu.Unlock()

	log.Info().Str("module", "client").
		Str("remote", remote).Str("role", role.String()).
		Msg("session created")

	var opErr error
	if role == Initiator {
		opErr = neg.Offer()
	} else if offer != nil {
		opErr = neg.Apply(offer)
	}
	if opErr != nil {
		m.dropSession(remote, &NegotiationError{Remote: remote, Err: opErr})
	}
}

func (m *Manager) sessionCallbacks(remote string, sig Signaler) rtc.Callbacks {
	return rtc.Callbacks{
		OnPayload: func(payload []byte) {
			err := sig.Send(Envelope{
				Type:   "signal",
				UserID: m.opts.UserID,
				Target: remote,
				Signal: payload,
			})
			if err != nil {
				log.Warn().Err(err).Str("module", "client").Str("remote", remote).Msg("send signal")
			}
		},
		OnConnected: func() {
			m.mu.Lock()
			s, ok := m.sessions[remote]
			if ok {
				s.state = SessionConnected
			}
			m.mu.Unlock()
			if ok {
				log.Info().Str("module", "client").Str("remote", remote).Msg("peer connected")
				m.opts.Callbacks.peerConnected(remote)
			}
		},
		OnTrack: func(track *webrtc.TrackRemote, levelExtID uint8) {
			m.mu.Lock()
			s, ok := m.sessions[remote]
			if ok {
				s.track = track
				if m.opts.DetectSpeaking && levelExtID != 0 && m.opts.Callbacks.OnSpeaking != nil {
					lvlCtx, cancel := context.WithCancel(context.Background())
					s.levelCancel = cancel
					go observeLevels(lvlCtx, track, levelExtID, func(speaking bool) {
						m.opts.Callbacks.speaking(remote, speaking)
					})
				}
			}
			m.mu.Unlock()
		},
		OnClosed: func() { m.dropSession(remote, nil) },
		OnFailed: func(err error) {
			m.dropSession(remote, &NegotiationError{Remote: remote, Err: err})
		},
	}
}

// dropSession removes and tears down one session. A non-nil err marks the
// loss of that one pairing; everything else continues.
func (m *Manager) dropSession(remote string, err error) {
	m.mu.Lock()
	s, ok := m.sessions[remote]
	if ok {
		delete(m.sessions, remote)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.teardownSession(s)

	if err != nil {
		log.Warn().Err(err).Str("module", "client").Str("remote", remote).Msg("session failed")
		m.opts.Callbacks.error(err)
	}
	m.opts.Callbacks.peerClosed(remote)
}

func (m *Manager) teardownSession(s *session) {
	s.state = SessionClosed
	if s.levelCancel != nil {
		s.levelCancel()
	}
	if s.neg != nil {
		s.neg.Close()
	}
}

func (m *Manager) addParticipant(id string) {
	m.mu.Lock()
	_, exists := m.participants[id]
	if !exists {
		m.participants[id] = struct{}{}
	}
	m.mu.Unlock()
	if !exists {
		m.opts.Callbacks.participantJoined(id)
	}
}

func (m *Manager) removeParticipant(id string) {
	m.mu.Lock()
	_, exists := m.participants[id]
	if exists {
		delete(m.participants, id)
	}
	m.mu.Unlock()
	if exists {
		m.opts.Callbacks.participantLeft(id)
	}
}
