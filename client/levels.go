package client

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// speakingThreshold is in dBov steps (0 loudest, 127 silence).
const speakingThreshold = 50

// observeLevels reads RTP from a connected remote track and reports
// speaking transitions from the ssrc-audio-level header extension. It is
// a presentational overlay on an established session and owns the track
// reads for its lifetime; it stops when the track errors or ctx ends.
func observeLevels(ctx context.Context, track *webrtc.TrackRemote, extID uint8, onChange func(speaking bool)) {
	speaking := false
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		ext := pkt.GetExtension(extID)
		if ext == nil {
			continue
		}
		var level rtp.AudioLevelExtension
		if err := level.Unmarshal(ext); err != nil {
			continue
		}
		now := level.Voice && level.Level < speakingThreshold
		if now != speaking {
			speaking = now
			onChange(now)
		}
	}
}
