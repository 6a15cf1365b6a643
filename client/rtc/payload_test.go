package rtc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOffer(t *testing.T) {
	assert.True(t, IsOffer([]byte(`{"kind":"offer","sdp":"v=0"}`)))
	assert.False(t, IsOffer([]byte(`{"kind":"answer","sdp":"v=0"}`)))
	assert.False(t, IsOffer([]byte(`{"kind":"candidate","candidate":{"candidate":"c"}}`)))
	assert.False(t, IsOffer([]byte(`{}`)))
	assert.False(t, IsOffer([]byte(`not json`)))
	assert.False(t, IsOffer(nil))
}

func TestPayloadOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(Payload{Kind: KindOffer, SDP: "v=0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"offer","sdp":"v=0"}`, string(b))

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"candidate","candidate":{"candidate":"c","sdpMid":"0"}}`), &p))
	assert.Equal(t, KindCandidate, p.Kind)
	require.NotNil(t, p.Candidate)
	assert.Equal(t, "c", p.Candidate.Candidate)
}
