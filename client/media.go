package client

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// AudioCapture is a scoped microphone acquisition: acquired on Start,
// guaranteed released on every exit path.
type AudioCapture interface {
	Track() webrtc.TrackLocal
	// SetEnabled toggles the local audio without tearing down or
	// renegotiating any session.
	SetEnabled(enabled bool)
	Close()
}

// Media acquires local audio. The actual device capture is a collaborator
// outside this package; tests and embedders provide their own.
type Media interface {
	AcquireAudio(ctx context.Context) (AudioCapture, error)
}

// StaticSource adapts an externally fed sample track into an AudioCapture.
// Muting drops samples instead of touching the negotiated track.
type StaticSource struct {
	track   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
}

func NewStaticSource(track *webrtc.TrackLocalStaticSample) *StaticSource {
	s := &StaticSource{track: track}
	s.enabled.Store(true)
	return s
}

func (s *StaticSource) Track() webrtc.TrackLocal { return s.track }

func (s *StaticSource) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

func (s *StaticSource) Enabled() bool { return s.enabled.Load() }

// WriteSample forwards one captured sample to the track; muted samples
// are silently discarded.
func (s *StaticSource) WriteSample(sample media.Sample) error {
	if !s.enabled.Load() {
		return nil
	}
	return s.track.WriteSample(sample)
}

func (s *StaticSource) Close() {}

// StaticMedia is a Media that hands out the given track. A nil track
// behaves like an unavailable microphone.
type StaticMedia struct {
	AudioTrack *webrtc.TrackLocalStaticSample
}

func (m StaticMedia) AcquireAudio(context.Context) (AudioCapture, error) {
	if m.AudioTrack == nil {
		return nil, errors.New("no audio track available")
	}
	return NewStaticSource(m.AudioTrack), nil
}
