// Package rtc wraps a pion PeerConnection into the negotiation primitive
// used by the client session manager: apply inbound payloads, emit
// outbound ones, report connected/closed transitions.
package rtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const audioLevelURI = "urn:ietf:params:rtp-hdrext:ssrc-audio-level"

// Callbacks is the closed event set a Link emits. Subscribed once at
// construction; never polled.
type Callbacks struct {
	// OnPayload fires for every outbound negotiation fragment.
	OnPayload func(payload []byte)
	// OnConnected fires when the media path reports established.
	OnConnected func()
	// OnTrack fires when the remote audio track arrives. levelExtID is
	// the negotiated ssrc-audio-level extension id, 0 if absent.
	OnTrack  func(track *webrtc.TrackRemote, levelExtID uint8)
	OnClosed func()
	OnFailed func(err error)
}

// Link is one point-to-point media negotiation.
type Link struct {
	pc *webrtc.PeerConnection
	cb Callbacks

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit

	closeOnce sync.Once
}

func DefaultConfiguration() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

func newAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	if err := m.RegisterHeaderExtension(
		webrtc.RTPHeaderExtensionCapability{URI: audioLevelURI},
		webrtc.RTPCodecTypeAudio,
	); err != nil {
		return nil, err
	}
	return webrtc.NewAPI(webrtc.WithMediaEngine(m)), nil
}

func NewLink(cfg webrtc.Configuration, local webrtc.TrackLocal, cb Callbacks) (*Link, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	if local != nil {
		if _, err := pc.AddTrack(local); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	l := &Link{pc: pc, cb: cb}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		init := cand.ToJSON()
		l.emit(Payload{Kind: KindCandidate, Candidate: &init})
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Debug().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			if cb.OnConnected != nil {
				cb.OnConnected()
			}
		case webrtc.PeerConnectionStateFailed:
			if cb.OnFailed != nil {
				cb.OnFailed(errors.New("peer connection failed"))
			}
		case webrtc.PeerConnectionStateClosed:
			if cb.OnClosed != nil {
				cb.OnClosed()
			}
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Debug().Str("module", "rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Msg("remote track")
		if cb.OnTrack != nil {
			cb.OnTrack(track, levelExtensionID(receiver))
		}
	})

	return l, nil
}

func levelExtensionID(receiver *webrtc.RTPReceiver) uint8 {
	for _, ext := range receiver.GetParameters().HeaderExtensions {
		if ext.URI == audioLevelURI {
			return uint8(ext.ID)
		}
	}
	return 0
}

// Offer starts the initiator exchange: the offer goes out immediately and
// candidates trickle after it.
func (l *Link) Offer() error {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	l.emit(Payload{Kind: KindOffer, SDP: offer.SDP})
	return nil
}

// Apply applies one inbound fragment. Candidates arriving before the
// remote description are buffered and flushed once it is set.
func (l *Link) Apply(raw []byte) error {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("bad negotiation payload: %w", err)
	}

	switch p.Kind {
	case KindOffer:
		if err := l.setRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}); err != nil {
			return err
		}
		answer, err := l.pc.CreateAnswer(nil)
		if err != nil {
			return err
		}
		if err := l.pc.SetLocalDescription(answer); err != nil {
			return err
		}
		l.emit(Payload{Kind: KindAnswer, SDP: answer.SDP})
		return nil

	case KindAnswer:
		return l.setRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP})

	case KindCandidate:
		if p.Candidate == nil {
			return errors.New("candidate payload without candidate")
		}
		l.mu.Lock()
		if !l.remoteSet {
			l.pending = append(l.pending, *p.Candidate)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()
		return l.pc.AddICECandidate(*p.Candidate)

	default:
		return fmt.Errorf("unknown payload kind %q", p.Kind)
	}
}

func (l *Link) setRemote(sd webrtc.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(sd); err != nil {
		return err
	}
	l.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, cand := range pending {
		if err := l.pc.AddICECandidate(cand); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("buffered candidate rejected")
		}
	}
	return nil
}

func (l *Link) emit(p Payload) {
	if l.cb.OnPayload == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("encode payload")
		return
	}
	l.cb.OnPayload(b)
}

func (l *Link) Close() {
	l.closeOnce.Do(func() {
		if err := l.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("close error")
		}
	})
}
