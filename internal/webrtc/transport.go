// Package webrtc adapts a Pion peer connection to the answer side of the
// session's media negotiation.
package webrtc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"rdview/native/internal/domain"
)

// Transport wraps a Pion PeerConnection created from a server-issued
// offer. One Transport answers exactly one offer; renegotiation builds a
// new one.
type Transport struct {
	pc             *pion.PeerConnection
	log            zerolog.Logger
	remoteDescSet  chan struct{}
	remoteDescOnce sync.Once
}

// Factory returns a domain.TransportFactory that builds transports
// streaming remote video into sink.
func Factory(sink domain.MediaSink, log zerolog.Logger) domain.TransportFactory {
	return func(iceServers []domain.ICEServer) (domain.Transport, error) {
		return NewTransport(iceServers, sink, log)
	}
}

// NewTransport creates a receive-only peer connection configured with the
// ICE servers carried in the offer. The list is used as delivered; there
// is no built-in fallback server.
func NewTransport(iceServers []domain.ICEServer, sink domain.MediaSink, log zerolog.Logger) (*Transport, error) {
	m := &pion.MediaEngine{}

	h264Codec := pion.RTPCodecParameters{
		RTPCodecCapability: pion.RTPCodecCapability{
			MimeType:    pion.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
		},
		PayloadType: 102,
	}
	if err := m.RegisterCodec(h264Codec, pion.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("register H264: %w", err)
	}

	opusCodec := pion.RTPCodecParameters{
		RTPCodecCapability: pion.RTPCodecCapability{
			MimeType:  pion.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  2,
		},
		PayloadType: 111,
	}
	if err := m.RegisterCodec(opusCodec, pion.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register Opus: %w", err)
	}

	i := &interceptor.Registry{}
	generatorFactory, err := nack.NewGeneratorInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack generator: %w", err)
	}
	i.Add(generatorFactory)

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
	)

	var servers []pion.ICEServer
	for _, s := range iceServers {
		servers = append(servers, pion.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers:   servers,
		BundlePolicy: pion.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	t := &Transport{
		pc:            pc,
		log:           log.With().Str("component", "webrtc").Logger(),
		remoteDescSet: make(chan struct{}),
	}

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		t.log.Info().Str("state", state.String()).Msg("ICE connection state")
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		t.log.Info().Str("state", state.String()).Msg("peer connection state")
	})

	pc.OnTrack(func(track *pion.TrackRemote, receiver *pion.RTPReceiver) {
		codec := track.Codec()
		t.log.Info().
			Str("kind", track.Kind().String()).
			Str("codec", codec.MimeType).
			Msg("got track")

		if track.Kind() == pion.RTPCodecTypeVideo {
			go t.readVideoTrack(track, sink)
		} else {
			go drainTrack(track)
		}
	})

	return t, nil
}

// SetRemoteOffer applies the server's SDP offer and unblocks remote
// candidate addition.
func (t *Transport) SetRemoteOffer(sdp string) error {
	offer := pion.SessionDescription{
		Type: pion.SDPTypeOffer,
		SDP:  sdp,
	}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	t.log.Debug().Msg("remote SDP offer set")
	t.remoteDescOnce.Do(func() { close(t.remoteDescSet) })
	return nil
}

// CreateAnswer produces the local answer and sets it as the local
// description. Must be called after SetRemoteOffer.
func (t *Transport) CreateAnswer() (string, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	t.log.Debug().Msg("local SDP answer set")
	return answer.SDP, nil
}

// OnICECandidate registers the forwarding callback for locally gathered
// candidates. End of gathering is delivered as nil.
func (t *Transport) OnICECandidate(fn func(c *domain.Candidate)) {
	t.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			t.log.Debug().Msg("ICE gathering complete")
			fn(nil)
			return
		}

		init := c.ToJSON()
		if isLoopback(init.Candidate) {
			t.log.Debug().Msg("filtering loopback ICE candidate")
			return
		}

		out := &domain.Candidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			out.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			out.SDPMLineIndex = int(*init.SDPMLineIndex)
		}
		if init.UsernameFragment != nil {
			out.UsernameFragment = *init.UsernameFragment
		}

		t.log.Debug().Str("candidate", init.Candidate).Msg("local ICE candidate")
		fn(out)
	})
}

// AddRemoteCandidate waits for the remote description, then feeds the
// candidate to the peer connection.
func (t *Transport) AddRemoteCandidate(c domain.Candidate) error {
	<-t.remoteDescSet

	sdpMLineIndex := uint16(c.SDPMLineIndex)
	init := pion.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        &c.SDPMid,
		SDPMLineIndex: &sdpMLineIndex,
	}
	if c.UsernameFragment != "" {
		init.UsernameFragment = &c.UsernameFragment
	}

	if err := t.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

// Close shuts down the peer connection.
func (t *Transport) Close() error {
	if t.pc != nil {
		return t.pc.Close()
	}
	return nil
}

func (t *Transport) readVideoTrack(track *pion.TrackRemote, sink domain.MediaSink) {
	t.log.Info().Msg("reading H264 video track")

	startCode := []byte{0x00, 0x00, 0x00, 0x01}
	depack := NewH264Depacketizer()

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			t.log.Warn().Err(err).Msg("video track read error")
			return
		}

		nalus := depack.Depacketize(pkt.SequenceNumber, pkt.Payload)
		for _, nalu := range nalus {
			if len(nalu) == 0 {
				continue
			}
			sink.Write(startCode)
			sink.Write(nalu)
		}
	}
}

func drainTrack(track *pion.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func isLoopback(candidate string) bool {
	return strings.Contains(candidate, "127.0.0.1") || strings.Contains(candidate, "::1 ")
}
