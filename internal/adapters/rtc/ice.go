// Package rtc prepares the WebRTC settings handed to clients. The server never
// terminates media itself; peers connect directly.
package rtc

import (
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type ICEConfig struct {
	URLs       []string
	Username   string
	Credential string
}

func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs: []string{"stun:stun.l.google.com:19302"},
		},
	}
}

// ICEServers validates the configured URLs. STUN entries are grouped into one
// server; TURN entries need credentials and are skipped without them.
func ICEServers(cfg ICEConfig) []webrtc.ICEServer {
	var (
		stunURLs []string
		turnURLs []string
	)
	for _, raw := range cfg.URLs {
		uri, err := stun.ParseURI(raw)
		if err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("url", raw).Msg("skipping bad ICE url")
			continue
		}
		switch uri.Scheme {
		case stun.SchemeTypeTURN, stun.SchemeTypeTURNS:
			if cfg.Username == "" || cfg.Credential == "" {
				log.Warn().Str("module", "rtc").Str("url", raw).Msg("skipping TURN url without credentials")
				continue
			}
			turnURLs = append(turnURLs, raw)
		default:
			stunURLs = append(stunURLs, raw)
		}
	}

	var servers []webrtc.ICEServer
	if len(stunURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stunURLs})
	}
	if len(turnURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           turnURLs,
			Username:       cfg.Username,
			Credential:     cfg.Credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	log.Info().Str("module", "rtc").Int("stun", len(stunURLs)).Int("turn", len(turnURLs)).Msg("ICE servers configured")
	return servers
}
