package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/mounzok/deriv-relay/common"
	"github.com/mounzok/deriv-relay/venue"
)

// LinkFactory constructs the venue link for a new session. Injectable so the
// venue can be stood in for during testing.
type LinkFactory func(params venue.LinkParams, wg *sync.WaitGroup) (venue.Link, error)

// RegistryParams parameters for defining a session registry
type RegistryParams struct {
	// Venue are the upstream venue connection parameters
	Venue common.VenueConfig
	// Mirror optional event tap. Nil disables mirroring.
	Mirror EventMirror
	// LinkFactory overrides venue link construction. Nil uses the real venue.
	LinkFactory LinkFactory
}

// Registry process wide table of live sessions. The single source of truth
// for session existence; every other component resolves sessions through it.
type Registry interface {
	// CreateSession register a new session for a credential. The venue link
	// is established in the background; the call itself only fails on an
	// empty or malformed credential.
	CreateSession(ctxt context.Context, credential string) (string, error)
	// Lookup resolve a session ID
	Lookup(sessionID string) (*Session, error)
	// DeleteSession tear down and remove a session. Idempotent.
	DeleteSession(ctxt context.Context, sessionID string) error
	// AttachSink register a new push-stream sink with a session
	AttachSink(sessionID string, sink Sink) error
	// DetachSink remove a sink from a session. Safe to call after the
	// session is already gone.
	DetachSink(sessionID string, sink Sink)
	// SubscribeTicks request venue tick data for a symbol on behalf of a
	// session. Returns the tracking subscription ID.
	SubscribeTicks(ctxt context.Context, sessionID, symbol string) (string, error)
	// UnsubscribeTicks end venue tick data for a symbol
	UnsubscribeTicks(ctxt context.Context, sessionID, symbol string) error
	// PlaceOrder send an order placement command for a session. Acknowledges
	// sending only; results arrive via the event stream.
	PlaceOrder(ctxt context.Context, sessionID string, spec venue.OrderSpec) error
	// SessionCount number of live sessions
	SessionCount() int
	// Close tear down every remaining session
	Close(ctxt context.Context) error
}

// registryImpl implements Registry
type registryImpl struct {
	common.Component
	rootCtxt    context.Context
	wg          *sync.WaitGroup
	params      RegistryParams
	linkFactory LinkFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// GetSessionRegistry define a new session registry
func GetSessionRegistry(
	rootCtxt context.Context, params RegistryParams, wg *sync.WaitGroup,
) (Registry, error) {
	logTags := log.Fields{
		"module":    "session",
		"component": "registry",
	}
	linkFactory := params.LinkFactory
	if linkFactory == nil {
		linkFactory = venue.GetVenueLink
	}
	return &registryImpl{
		Component:   common.Component{LogTags: logTags},
		rootCtxt:    rootCtxt,
		wg:          wg,
		params:      params,
		linkFactory: linkFactory,
		sessions:    make(map[string]*Session),
	}, nil
}

// CreateSession register a new session for a credential
func (r *registryImpl) CreateSession(
	ctxt context.Context, credential string,
) (string, error) {
	if strings.TrimSpace(credential) == "" ||
		strings.ContainsAny(credential, " \t\r\n") {
		return "", ErrInvalidCredential
	}

	sessionID := uuid.NewString()
	newEntry, err := newSession(r.rootCtxt, sessionID, credential, r.params.Mirror)
	if err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Unable to define session")
		return "", err
	}

	link, err := r.linkFactory(venue.LinkParams{
		WSURL:          r.params.Venue.WSURL,
		SessionID:      sessionID,
		Credential:     credential,
		ConnectTimeout: time.Second * time.Duration(r.params.Venue.ConnectTimeout),
		AuthTimeout:    time.Second * time.Duration(r.params.Venue.AuthTimeout),
		OnEvent:        newEntry.dispatchEvent,
		OnFailure: func(err error) {
			r.handleLinkFailure(sessionID, err)
		},
	}, r.wg)
	if err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Unable to define venue link")
		newEntry.cancel()
		return "", err
	}
	newEntry.link = link

	if err := newEntry.tp.StartEventLoop(r.wg); err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Unable to start session event loop")
		newEntry.cancel()
		return "", err
	}

	r.mu.Lock()
	r.sessions[sessionID] = newEntry
	r.mu.Unlock()

	// The link comes up in the background. Session creation never waits on
	// the venue; commands issued before authorization are rejected by the
	// link itself.
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = link.Start(newEntry.ctxt)
	}()

	log.WithFields(r.LogTags).Infof("Created session %s", sessionID)
	return sessionID, nil
}

// Lookup resolve a session ID
func (r *registryImpl) Lookup(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// DeleteSession tear down and remove a session
func (r *registryImpl) DeleteSession(ctxt context.Context, sessionID string) error {
	r.mu.Lock()
	entry, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		// Duplicate disconnects are tolerated
		return nil
	}
	entry.teardown()
	log.WithFields(r.LogTags).Infof("Deleted session %s", sessionID)
	return nil
}

// handleLinkFailure venue link failure is terminal for the session
func (r *registryImpl) handleLinkFailure(sessionID string, cause error) {
	log.WithError(cause).WithFields(r.LogTags).Warnf(
		"Venue link for session %s failed, removing session", sessionID,
	)
	_ = r.DeleteSession(context.Background(), sessionID)
}

// AttachSink register a new push-stream sink with a session
func (r *registryImpl) AttachSink(sessionID string, sink Sink) error {
	entry, err := r.Lookup(sessionID)
	if err != nil {
		return err
	}
	return entry.attachSink(sink)
}

// DetachSink remove a sink from a session
func (r *registryImpl) DetachSink(sessionID string, sink Sink) {
	entry, err := r.Lookup(sessionID)
	if err != nil {
		return
	}
	entry.detachSink(sink)
}

// SubscribeTicks request venue tick data for a symbol on behalf of a session
func (r *registryImpl) SubscribeTicks(
	ctxt context.Context, sessionID, symbol string,
) (string, error) {
	entry, err := r.Lookup(sessionID)
	if err != nil {
		return "", err
	}

	complete := make(chan bool, 1)
	var subID string
	var processError error
	request := sessionSubscribeReq{
		symbol: symbol,
		resultCB: func(id string, err error) {
			subID = id
			processError = err
			complete <- true
		},
	}

	if err := entry.tp.Submit(ctxt, request); err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Failed to submit subscribe request")
		return "", err
	}

	select {
	case <-complete:
		return subID, processError
	case <-ctxt.Done():
		return "", ctxt.Err()
	case <-entry.ctxt.Done():
		return "", ErrSessionNotFound
	}
}

// UnsubscribeTicks end venue tick data for a symbol
func (r *registryImpl) UnsubscribeTicks(
	ctxt context.Context, sessionID, symbol string,
) error {
	entry, err := r.Lookup(sessionID)
	if err != nil {
		return err
	}

	complete := make(chan bool, 1)
	var processError error
	request := sessionUnsubscribeReq{
		symbol: symbol,
		resultCB: func(err error) {
			processError = err
			complete <- true
		},
	}

	if err := entry.tp.Submit(ctxt, request); err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Failed to submit unsubscribe request")
		return err
	}

	select {
	case <-complete:
		return processError
	case <-ctxt.Done():
		return ctxt.Err()
	case <-entry.ctxt.Done():
		return ErrSessionNotFound
	}
}

// PlaceOrder send an order placement command for a session
func (r *registryImpl) PlaceOrder(
	ctxt context.Context, sessionID string, spec venue.OrderSpec,
) error {
	entry, err := r.Lookup(sessionID)
	if err != nil {
		return err
	}

	complete := make(chan bool, 1)
	var processError error
	request := sessionPlaceOrderReq{
		request: venue.NewBuyRequest(spec),
		resultCB: func(err error) {
			processError = err
			complete <- true
		},
	}

	if err := entry.tp.Submit(ctxt, request); err != nil {
		log.WithError(err).WithFields(r.LogTags).Error("Failed to submit place-order request")
		return err
	}

	select {
	case <-complete:
		return processError
	case <-ctxt.Done():
		return ctxt.Err()
	case <-entry.ctxt.Done():
		return ErrSessionNotFound
	}
}

// SessionCount number of live sessions
func (r *registryImpl) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close tear down every remaining session
func (r *registryImpl) Close(ctxt context.Context) error {
	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		remaining = append(remaining, entry)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, entry := range remaining {
		entry.teardown()
	}
	log.WithFields(r.LogTags).Infof("Closed registry with %d sessions", len(remaining))
	return nil
}
