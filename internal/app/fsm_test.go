package app

import (
	"testing"

	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.CallState
		ev      CallEvent
		want    domain.CallState
		illegal bool
	}{
		{"accept ringing", domain.CallRinging, EventAccept, domain.CallActive, false},
		{"reject ringing", domain.CallRinging, EventReject, domain.CallEnded, false},
		{"cancel ringing", domain.CallRinging, EventEnd, domain.CallEnded, false},
		{"candidate while ringing", domain.CallRinging, EventCandidate, domain.CallRinging, false},
		{"candidate while renegotiating", domain.CallRenegotiating, EventCandidate, domain.CallRenegotiating, false},
		{"renegotiate active", domain.CallActive, EventRenegotiateOffer, domain.CallRenegotiating, false},
		{"answer renegotiation", domain.CallRenegotiating, EventRenegotiateAnswer, domain.CallActive, false},
		{"lost during renegotiation", domain.CallRenegotiating, EventConnectionLost, domain.CallEnded, false},
		{"ring timeout", domain.CallRinging, EventRingTimeout, domain.CallEnded, false},
		{"replaced while active", domain.CallActive, EventReplaced, domain.CallEnded, false},

		{"accept twice", domain.CallActive, EventAccept, domain.CallActive, true},
		{"reject active", domain.CallActive, EventReject, domain.CallActive, true},
		{"renegotiate ringing", domain.CallRinging, EventRenegotiateOffer, domain.CallRinging, true},
		{"overlapping offers", domain.CallRenegotiating, EventRenegotiateOffer, domain.CallRenegotiating, true},
		{"answer without offer", domain.CallActive, EventRenegotiateAnswer, domain.CallActive, true},
		{"ring timeout after accept", domain.CallActive, EventRingTimeout, domain.CallActive, true},
		{"candidate after end", domain.CallEnded, EventCandidate, domain.CallEnded, true},
		{"end twice", domain.CallEnded, EventEnd, domain.CallEnded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			if tt.illegal {
				require.ErrorIs(t, err, domain.ErrIllegalTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
