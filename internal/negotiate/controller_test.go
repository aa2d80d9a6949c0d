package negotiate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdview/native/internal/domain"
)

type fakeChannel struct {
	mu   sync.Mutex
	sent []any
}

func (c *fakeChannel) Connect(ctx context.Context) error { return nil }

func (c *fakeChannel) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) Messages() <-chan any { return nil }
func (c *fakeChannel) Close() error         { return nil }

func (c *fakeChannel) sentMessages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.sent...)
}

type fakeTransport struct {
	remoteSDP    string
	answerSDP    string
	offerErr     error
	answerErr    error
	closed       bool
	onCandidate  func(*domain.Candidate)
	onAnswer     func(*fakeTransport)
	remoteAdded  []domain.Candidate
	addCandidate error
}

func (t *fakeTransport) SetRemoteOffer(sdp string) error {
	t.remoteSDP = sdp
	return t.offerErr
}

func (t *fakeTransport) CreateAnswer() (string, error) {
	if t.answerErr != nil {
		return "", t.answerErr
	}
	if t.onAnswer != nil {
		t.onAnswer(t)
	}
	return t.answerSDP, nil
}

func (t *fakeTransport) OnICECandidate(fn func(c *domain.Candidate)) { t.onCandidate = fn }

func (t *fakeTransport) AddRemoteCandidate(c domain.Candidate) error {
	t.remoteAdded = append(t.remoteAdded, c)
	return t.addCandidate
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

type testRig struct {
	controller *Controller
	channel    *fakeChannel
	transports []*fakeTransport
	factoryErr error
	onAnswer   func(*fakeTransport)
	streamed   int
	gotServers [][]domain.ICEServer
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	rig := &testRig{channel: &fakeChannel{}}
	factory := func(servers []domain.ICEServer) (domain.Transport, error) {
		if rig.factoryErr != nil {
			return nil, rig.factoryErr
		}
		rig.gotServers = append(rig.gotServers, servers)
		transport := &fakeTransport{answerSDP: "v=0\r\nanswer-sdp", onAnswer: rig.onAnswer}
		rig.transports = append(rig.transports, transport)
		return transport, nil
	}
	rig.controller = NewController(rig.channel, factory, func() { rig.streamed++ }, zerolog.Nop())
	return rig
}

func offerMsg(sdp string) *domain.OfferMessage {
	return &domain.OfferMessage{
		Type: domain.TypeOffer,
		SDP:  sdp,
		ICEServers: []domain.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
		},
	}
}

func TestHandleOffer_SendsExactlyOneAnswer(t *testing.T) {
	rig := newRig(t)
	rig.controller.Expect()

	require.NoError(t, rig.controller.HandleOffer(offerMsg("v=0\r\noffer-sdp")))

	sent := rig.channel.sentMessages()
	require.Len(t, sent, 1)
	answer, ok := sent[0].(*domain.AnswerMessage)
	require.True(t, ok, "expected *AnswerMessage, got %T", sent[0])
	assert.Equal(t, "v=0\r\nanswer-sdp", answer.SDP)

	require.Len(t, rig.transports, 1)
	assert.Equal(t, "v=0\r\noffer-sdp", rig.transports[0].remoteSDP)
	assert.Equal(t, StateStreaming, rig.controller.State())
	assert.Equal(t, 1, rig.streamed)
}

func TestHandleOffer_UsesServerSuppliedICEServers(t *testing.T) {
	rig := newRig(t)

	require.NoError(t, rig.controller.HandleOffer(offerMsg("sdp")))

	require.Len(t, rig.gotServers, 1)
	require.Len(t, rig.gotServers[0], 1)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, rig.gotServers[0][0].URLs)
}

func TestHandleOffer_NAnswersForNOffersInOrder(t *testing.T) {
	rig := newRig(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, rig.controller.HandleOffer(offerMsg("sdp")))
	}

	sent := rig.channel.sentMessages()
	require.Len(t, sent, 3)
	for _, msg := range sent {
		_, ok := msg.(*domain.AnswerMessage)
		assert.True(t, ok, "expected answer, got %T", msg)
	}
}

func TestHandleOffer_RenegotiationReplacesTransport(t *testing.T) {
	rig := newRig(t)

	require.NoError(t, rig.controller.HandleOffer(offerMsg("first")))
	require.NoError(t, rig.controller.HandleOffer(offerMsg("second")))

	require.Len(t, rig.transports, 2)
	assert.True(t, rig.transports[0].closed, "first transport must be torn down")
	assert.False(t, rig.transports[1].closed)
	assert.Equal(t, "second", rig.transports[1].remoteSDP)
}

func TestHandleOffer_TransportRejectionIsFatal(t *testing.T) {
	rig := newRig(t)

	boom := errors.New("sdp parse failure")
	factory := func(servers []domain.ICEServer) (domain.Transport, error) {
		return &fakeTransport{offerErr: boom}, nil
	}
	rig.controller = NewController(rig.channel, factory, nil, zerolog.Nop())

	err := rig.controller.HandleOffer(offerMsg("bad"))
	var negErr *domain.NegotiationError
	require.ErrorAs(t, err, &negErr)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rig.channel.sentMessages(), "no answer may be sent on failure")
}

func TestLocalCandidates_ForwardedOnlyWhileNonNil(t *testing.T) {
	rig := newRig(t)
	require.NoError(t, rig.controller.HandleOffer(offerMsg("sdp")))

	transport := rig.transports[0]
	require.NotNil(t, transport.onCandidate)

	transport.onCandidate(&domain.Candidate{Candidate: "candidate:1", SDPMid: "0"})
	transport.onCandidate(nil) // end of gathering, not forwarded
	transport.onCandidate(&domain.Candidate{Candidate: "candidate:2", SDPMid: "0"})

	var candidates []*domain.CandidateMessage
	for _, msg := range rig.channel.sentMessages() {
		if c, ok := msg.(*domain.CandidateMessage); ok {
			candidates = append(candidates, c)
		}
	}
	require.Len(t, candidates, 2)
	assert.Equal(t, "candidate:1", candidates[0].Candidate.Candidate)
	assert.Equal(t, "candidate:2", candidates[1].Candidate.Candidate)
}

// Gathering starts inside CreateAnswer, so candidates can surface before
// the answer frame is written. They must be held and flushed after it,
// in gathering order.
func TestAnswerSentBeforeAnyCandidate(t *testing.T) {
	rig := newRig(t)
	rig.onAnswer = func(tr *fakeTransport) {
		tr.onCandidate(&domain.Candidate{Candidate: "candidate:1", SDPMid: "0"})
		tr.onCandidate(&domain.Candidate{Candidate: "candidate:2", SDPMid: "0"})
	}
	require.NoError(t, rig.controller.HandleOffer(offerMsg("sdp")))

	sent := rig.channel.sentMessages()
	require.Len(t, sent, 3)
	_, ok := sent[0].(*domain.AnswerMessage)
	assert.True(t, ok, "first outbound message must be the answer")
	first, ok := sent[1].(*domain.CandidateMessage)
	require.True(t, ok)
	second, ok := sent[2].(*domain.CandidateMessage)
	require.True(t, ok)
	assert.Equal(t, "candidate:1", first.Candidate.Candidate)
	assert.Equal(t, "candidate:2", second.Candidate.Candidate)
}

// A renegotiation offer re-arms the hold: early candidates for the new
// transport wait for the new answer.
func TestAnswerSentBeforeAnyCandidate_AfterRenegotiation(t *testing.T) {
	rig := newRig(t)
	require.NoError(t, rig.controller.HandleOffer(offerMsg("first")))

	rig.onAnswer = func(tr *fakeTransport) {
		tr.onCandidate(&domain.Candidate{Candidate: "candidate:renew", SDPMid: "0"})
	}
	require.NoError(t, rig.controller.HandleOffer(offerMsg("second")))

	sent := rig.channel.sentMessages()
	require.Len(t, sent, 3)
	_, ok := sent[1].(*domain.AnswerMessage)
	assert.True(t, ok, "renegotiation answer must precede its candidates")
	cand, ok := sent[2].(*domain.CandidateMessage)
	require.True(t, ok)
	assert.Equal(t, "candidate:renew", cand.Candidate.Candidate)
}

func TestHandleCandidate_ForwardedToTransport(t *testing.T) {
	rig := newRig(t)
	require.NoError(t, rig.controller.HandleOffer(offerMsg("sdp")))

	rig.controller.HandleCandidate(&domain.CandidateMessage{
		Type:      domain.TypeCandidate,
		Candidate: domain.Candidate{Candidate: "candidate:9", SDPMid: "0"},
	})

	require.Len(t, rig.transports[0].remoteAdded, 1)
	assert.Equal(t, "candidate:9", rig.transports[0].remoteAdded[0].Candidate)
}

func TestHandleCandidate_BeforeOfferIsDropped(t *testing.T) {
	rig := newRig(t)

	rig.controller.HandleCandidate(&domain.CandidateMessage{
		Candidate: domain.Candidate{Candidate: "candidate:1"},
	})

	assert.Empty(t, rig.transports)
	assert.Empty(t, rig.channel.sentMessages())
}
