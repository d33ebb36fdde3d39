package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/mounzok/deriv-relay/common"
	"github.com/mounzok/deriv-relay/venue"
	"github.com/stretchr/testify/assert"
)

// mockVenueLink stand-in venue link recording every command sent through it
type mockVenueLink struct {
	params           venue.LinkParams
	authorizeOnStart bool

	mu    sync.Mutex
	state venue.LinkState
	sent  []interface{}
}

func (m *mockVenueLink) Start(ctxt context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Closed while dialing
	if ctxt.Err() != nil || m.state != venue.LinkConnecting {
		return venue.ErrLinkNotReady
	}
	if m.authorizeOnStart {
		m.state = venue.LinkAuthorized
	} else {
		m.state = venue.LinkAuthorizing
	}
	return nil
}

func (m *mockVenueLink) SendCommand(ctxt context.Context, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case venue.LinkAuthorized:
	case venue.LinkConnecting, venue.LinkAuthorizing:
		return venue.ErrNotAuthorized
	default:
		return venue.ErrLinkNotReady
	}
	m.sent = append(m.sent, payload)
	return nil
}

func (m *mockVenueLink) State() venue.LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockVenueLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = venue.LinkClosed
	return nil
}

func (m *mockVenueLink) sentCommands() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]interface{}, len(m.sent))
	copy(result, m.sent)
	return result
}

// mockLinkRecorder link factory capturing every link it hands out
type mockLinkRecorder struct {
	authorizeOnStart bool

	mu    sync.Mutex
	links map[string]*mockVenueLink
}

func newMockLinkRecorder(authorizeOnStart bool) *mockLinkRecorder {
	return &mockLinkRecorder{
		authorizeOnStart: authorizeOnStart,
		links:            make(map[string]*mockVenueLink),
	}
}

func (r *mockLinkRecorder) factory(
	params venue.LinkParams, wg *sync.WaitGroup,
) (venue.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link := &mockVenueLink{
		params:           params,
		authorizeOnStart: r.authorizeOnStart,
		state:            venue.LinkConnecting,
	}
	r.links[params.SessionID] = link
	return link, nil
}

func (r *mockLinkRecorder) linkFor(sessionID string) *mockVenueLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.links[sessionID]
}

// mockEventMirror records every mirrored event
type mockEventMirror struct {
	mu     sync.Mutex
	events []json.RawMessage
}

func (m *mockEventMirror) MirrorEvent(sessionID string, event json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockEventMirror) seen() []json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]json.RawMessage, len(m.events))
	copy(result, m.events)
	return result
}

func utVenueConfig() common.VenueConfig {
	return common.VenueConfig{
		WSURL:          "ws://127.0.0.1:9999",
		ConnectTimeout: 1,
		AuthTimeout:    1,
	}
}

func TestSessionRegistryLifecycle(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	recorder := newMockLinkRecorder(true)
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	// Case 1: malformed credentials are rejected
	{
		_, err := uut.CreateSession(utCtxt, "")
		assert.Equal(ErrInvalidCredential, err)
		_, err = uut.CreateSession(utCtxt, "   ")
		assert.Equal(ErrInvalidCredential, err)
		_, err = uut.CreateSession(utCtxt, "has space")
		assert.Equal(ErrInvalidCredential, err)
		_, err = uut.CreateSession(utCtxt, "has\ttab")
		assert.Equal(ErrInvalidCredential, err)
		assert.Equal(0, uut.SessionCount())
	}

	// Case 2: create and resolve a session
	sessionID, err := uut.CreateSession(utCtxt, "ut-token")
	assert.Nil(err)
	assert.NotEmpty(sessionID)
	assert.Equal(1, uut.SessionCount())
	{
		entry, err := uut.Lookup(sessionID)
		assert.Nil(err)
		assert.Equal(sessionID, entry.ID())
	}

	// Case 3: unknown session
	{
		_, err := uut.Lookup("ut-unknown")
		assert.Equal(ErrSessionNotFound, err)
	}

	// Case 4: delete tears down the link and is idempotent
	{
		assert.Nil(uut.DeleteSession(utCtxt, sessionID))
		assert.Equal(0, uut.SessionCount())
		_, err := uut.Lookup(sessionID)
		assert.Equal(ErrSessionNotFound, err)
		assert.Eventually(func() bool {
			return recorder.linkFor(sessionID).State() == venue.LinkClosed
		}, time.Second, time.Millisecond*10)
		assert.Nil(uut.DeleteSession(utCtxt, sessionID))
	}
}

func TestSessionCommands(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	recorder := newMockLinkRecorder(true)
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	sessionID, err := uut.CreateSession(utCtxt, "ut-token")
	assert.Nil(err)
	assert.Eventually(func() bool {
		link := recorder.linkFor(sessionID)
		return link != nil && link.State() == venue.LinkAuthorized
	}, time.Second, time.Millisecond*10)
	link := recorder.linkFor(sessionID)

	// Case 1: subscribe records a tracking ID
	subID, err := uut.SubscribeTicks(utCtxt, sessionID, "R_100")
	assert.Nil(err)
	assert.True(strings.HasPrefix(subID, "ticks_R_100_"))
	{
		sent := link.sentCommands()
		assert.Len(sent, 1)
		assert.Equal(venue.NewTicksSubscribeRequest("R_100"), sent[0])
		entry, err := uut.Lookup(sessionID)
		assert.Nil(err)
		assert.Equal(map[string]string{subID: "R_100"}, entry.Subscriptions())
	}

	// Case 2: a second symbol gets its own record
	subID2, err := uut.SubscribeTicks(utCtxt, sessionID, "R_50")
	assert.Nil(err)
	{
		entry, err := uut.Lookup(sessionID)
		assert.Nil(err)
		assert.Len(entry.Subscriptions(), 2)
		assert.Equal("R_50", entry.Subscriptions()[subID2])
	}

	// Case 3: unsubscribe clears the symbol's records only
	{
		assert.Nil(uut.UnsubscribeTicks(utCtxt, sessionID, "R_100"))
		sent := link.sentCommands()
		assert.Equal(venue.NewForgetTicksRequest("R_100"), sent[len(sent)-1])
		entry, err := uut.Lookup(sessionID)
		assert.Nil(err)
		assert.Equal(map[string]string{subID2: "R_50"}, entry.Subscriptions())
	}

	// Case 4: unsubscribe for a never subscribed symbol still succeeds
	{
		assert.Nil(uut.UnsubscribeTicks(utCtxt, sessionID, "R_25"))
	}

	// Case 5: an empty order spec takes the documented defaults
	{
		assert.Nil(uut.PlaceOrder(utCtxt, sessionID, venue.OrderSpec{}))
		sent := link.sentCommands()
		assert.Equal(venue.NewBuyRequest(venue.OrderSpec{}), sent[len(sent)-1])
	}

	// Case 6: commands against an unknown session
	{
		_, err := uut.SubscribeTicks(utCtxt, "ut-unknown", "R_100")
		assert.Equal(ErrSessionNotFound, err)
		assert.Equal(ErrSessionNotFound, uut.UnsubscribeTicks(utCtxt, "ut-unknown", "R_100"))
		assert.Equal(ErrSessionNotFound, uut.PlaceOrder(utCtxt, "ut-unknown", venue.OrderSpec{}))
	}
}

func TestSessionCommandsBeforeAuthorization(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	// Links which never leave the authorizing state
	recorder := newMockLinkRecorder(false)
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	sessionID, err := uut.CreateSession(utCtxt, "ut-token")
	assert.Nil(err)

	_, err = uut.SubscribeTicks(utCtxt, sessionID, "R_100")
	assert.Equal(venue.ErrNotAuthorized, err)
	assert.Equal(venue.ErrNotAuthorized, uut.PlaceOrder(utCtxt, sessionID, venue.OrderSpec{}))

	// No subscription record for the failed attempt
	entry, err := uut.Lookup(sessionID)
	assert.Nil(err)
	assert.Empty(entry.Subscriptions())
}

func TestSessionEventFanOut(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	recorder := newMockLinkRecorder(true)
	mirror := &mockEventMirror{}
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), Mirror: mirror, LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	sessionID, err := uut.CreateSession(utCtxt, "ut-token")
	assert.Nil(err)
	assert.Eventually(func() bool {
		return recorder.linkFor(sessionID) != nil
	}, time.Second, time.Millisecond*10)
	link := recorder.linkFor(sessionID)

	sink1 := GetBufferedEventSink(4)
	sink2 := GetBufferedEventSink(4)
	assert.Nil(uut.AttachSink(sessionID, sink1))
	assert.Nil(uut.AttachSink(sessionID, sink2))

	// Case 1: every sink observes events in receipt order
	{
		link.params.OnEvent(json.RawMessage(`{"seq":1}`))
		link.params.OnEvent(json.RawMessage(`{"seq":2}`))
		for _, sink := range []*BufferedEventSink{sink1, sink2} {
			assert.Equal(json.RawMessage(`{"seq":1}`), <-sink.Events())
			assert.Equal(json.RawMessage(`{"seq":2}`), <-sink.Events())
		}
		assert.Len(mirror.seen(), 2)
	}

	// Case 2: a sink attached later never sees earlier events
	lateSink := GetBufferedEventSink(4)
	{
		assert.Nil(uut.AttachSink(sessionID, lateSink))
		link.params.OnEvent(json.RawMessage(`{"seq":3}`))
		assert.Equal(json.RawMessage(`{"seq":3}`), <-lateSink.Events())
		assert.Equal(json.RawMessage(`{"seq":3}`), <-sink1.Events())
		assert.Equal(json.RawMessage(`{"seq":3}`), <-sink2.Events())
	}

	// Case 3: a broken sink is dropped without stalling the rest
	{
		stalled := GetBufferedEventSink(1)
		assert.Nil(uut.AttachSink(sessionID, stalled))
		link.params.OnEvent(json.RawMessage(`{"seq":4}`))
		// The stalled sink's buffer is now full and never drained
		link.params.OnEvent(json.RawMessage(`{"seq":5}`))
		assert.Equal(json.RawMessage(`{"seq":4}`), <-sink1.Events())
		assert.Equal(json.RawMessage(`{"seq":5}`), <-sink1.Events())
		entry, err := uut.Lookup(sessionID)
		assert.Nil(err)
		// sink1, sink2, lateSink remain
		assert.Equal(3, entry.SinkCount())
	}

	// Case 4: detach stops delivery for that sink only
	{
		// Drain what was buffered before the detach
		assert.Equal(json.RawMessage(`{"seq":4}`), <-lateSink.Events())
		assert.Equal(json.RawMessage(`{"seq":5}`), <-lateSink.Events())
		uut.DetachSink(sessionID, lateSink)
		link.params.OnEvent(json.RawMessage(`{"seq":6}`))
		assert.Equal(json.RawMessage(`{"seq":6}`), <-sink1.Events())
		select {
		case event := <-lateSink.Events():
			assert.Failf("detached sink saw event", "%s", event)
		default:
		}
	}

	// Case 5: session deletion closes the remaining sinks
	{
		assert.Nil(uut.DeleteSession(utCtxt, sessionID))
		_, ok := <-sink1.Events()
		assert.False(ok)
		// Anything sink2 buffered remains readable, then the channel ends
		for range sink2.Events() {
		}
	}
}

func TestSessionAttachDuringTeardown(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	recorder := newMockLinkRecorder(true)
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	sessionID, err := uut.CreateSession(utCtxt, "ut-token")
	assert.Nil(err)

	// A caller can resolve the session just before it is deleted. The
	// attach landing after teardown must still leave the sink closed so
	// its stream ends.
	entry, err := uut.Lookup(sessionID)
	assert.Nil(err)
	assert.Nil(uut.DeleteSession(utCtxt, sessionID))

	sink := GetBufferedEventSink(4)
	assert.Equal(ErrSessionNotFound, entry.attachSink(sink))
	assert.Equal(0, entry.SinkCount())
	_, ok := <-sink.Events()
	assert.False(ok)

	// Through the registry the attach fails outright
	assert.Equal(ErrSessionNotFound, uut.AttachSink(sessionID, GetBufferedEventSink(4)))
}

func TestSessionLinkFailureTeardown(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	recorder := newMockLinkRecorder(true)
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	sessionID, err := uut.CreateSession(utCtxt, "ut-token")
	assert.Nil(err)
	assert.Eventually(func() bool {
		return recorder.linkFor(sessionID) != nil
	}, time.Second, time.Millisecond*10)

	sink := GetBufferedEventSink(4)
	assert.Nil(uut.AttachSink(sessionID, sink))

	// Venue link failure is terminal for the session
	recorder.linkFor(sessionID).params.OnFailure(fmt.Errorf("ut link failure"))
	assert.Eventually(func() bool {
		return uut.SessionCount() == 0
	}, time.Second, time.Millisecond*10)
	_, err = uut.Lookup(sessionID)
	assert.Equal(ErrSessionNotFound, err)
	_, ok := <-sink.Events()
	assert.False(ok)
}

func TestSessionRegistryClose(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	recorder := newMockLinkRecorder(true)
	uut, err := GetSessionRegistry(utCtxt, RegistryParams{
		Venue: utVenueConfig(), LinkFactory: recorder.factory,
	}, &wg)
	assert.Nil(err)

	session1, err := uut.CreateSession(utCtxt, "ut-token-1")
	assert.Nil(err)
	session2, err := uut.CreateSession(utCtxt, "ut-token-2")
	assert.Nil(err)
	assert.Equal(2, uut.SessionCount())

	assert.Nil(uut.Close(utCtxt))
	assert.Equal(0, uut.SessionCount())
	for _, sessionID := range []string{session1, session2} {
		assert.Eventually(func() bool {
			return recorder.linkFor(sessionID).State() == venue.LinkClosed
		}, time.Second, time.Millisecond*10)
	}
}
