package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/mounzok/deriv-relay/common"
)

// LinkState the venue link lifecycle state
type LinkState string

// Venue link lifecycle states. Failed is absorbing; a link is never reused
// after leaving Authorized.
const (
	LinkConnecting  = LinkState("connecting")
	LinkAuthorizing = LinkState("authorizing")
	LinkAuthorized  = LinkState("authorized")
	LinkClosed      = LinkState("closed")
	LinkFailed      = LinkState("failed")
)

// ErrLinkNotReady returned on send when the link is closed or failed
var ErrLinkNotReady = fmt.Errorf("venue link is not ready")

// ErrNotAuthorized returned on send before the venue authorization
// acknowledgment has arrived
var ErrNotAuthorized = fmt.Errorf("venue link is not authorized")

// EventHandlerCB callback for dispatching one inbound venue message. The
// payload is passed through verbatim.
type EventHandlerCB func(event json.RawMessage)

// FailureHandlerCB callback signaling terminal link failure to the owning
// session
type FailureHandlerCB func(err error)

// Link a single outbound connection to the venue for one session
type Link interface {
	// Start dial the venue and begin the authorization handshake. The read
	// loop runs until the link is closed or fails.
	Start(ctxt context.Context) error
	// SendCommand marshal and write a command payload. Only permitted once
	// the link is authorized.
	SendCommand(ctxt context.Context, payload interface{}) error
	// State read the current lifecycle state
	State() LinkState
	// Close tear down the link. Idempotent.
	Close() error
}

// LinkParams parameters for defining a venue link
type LinkParams struct {
	// WSURL is the venue websocket endpoint
	WSURL string `validate:"required,uri"`
	// SessionID is the owning session identifier. Held for logging and
	// callbacks only, never used to reach back into the registry.
	SessionID string `validate:"required"`
	// Credential is the opaque venue credential
	Credential string `validate:"required"`
	// ConnectTimeout max duration for the websocket dial
	ConnectTimeout time.Duration
	// AuthTimeout max duration to wait for the authorization acknowledgment
	AuthTimeout time.Duration
	// OnEvent inbound message dispatch callback
	OnEvent EventHandlerCB `validate:"required"`
	// OnFailure terminal failure callback
	OnFailure FailureHandlerCB `validate:"required"`
}

// linkImpl implements Link
type linkImpl struct {
	common.Component
	params LinkParams
	wg     *sync.WaitGroup

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu        sync.RWMutex
	state     LinkState
	authTimer common.IntervalTimer
}

// GetVenueLink define a new venue link for a session
func GetVenueLink(params LinkParams, wg *sync.WaitGroup) (Link, error) {
	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		return nil, err
	}
	logTags := log.Fields{
		"module":    "venue",
		"component": "link",
		"session":   params.SessionID,
	}
	return &linkImpl{
		Component: common.Component{LogTags: logTags},
		params:    params,
		wg:        wg,
		state:     LinkConnecting,
	}, nil
}

// Start dial the venue and begin the authorization handshake
func (l *linkImpl) Start(ctxt context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: l.params.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctxt, l.params.WSURL, nil)
	if err != nil {
		log.WithError(err).WithFields(l.LogTags).Error("Venue dial failed")
		l.fail(err)
		return err
	}

	l.mu.Lock()
	if l.state != LinkConnecting {
		// Closed while dialing
		l.mu.Unlock()
		_ = conn.Close()
		return ErrLinkNotReady
	}
	l.conn = conn
	l.state = LinkAuthorizing
	l.mu.Unlock()

	// The authorization request is the first and only unsolicited frame the
	// link itself sends
	if err := l.writePayload(AuthorizeRequest{Authorize: l.params.Credential}); err != nil {
		log.WithError(err).WithFields(l.LogTags).Error("Failed to send authorize request")
		l.fail(err)
		return err
	}

	if l.params.AuthTimeout > 0 {
		authTimer, err := common.GetIntervalTimerInstance(
			fmt.Sprintf("auth-timeout/%s", l.params.SessionID), ctxt, l.wg,
		)
		if err != nil {
			l.fail(err)
			return err
		}
		l.mu.Lock()
		l.authTimer = authTimer
		l.mu.Unlock()
		if err := authTimer.Start(l.params.AuthTimeout, func() error {
			if l.State() == LinkAuthorizing {
				l.fail(fmt.Errorf("venue authorization timed out"))
			}
			return nil
		}, true); err != nil {
			l.fail(err)
			return err
		}
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.readLoop()
	}()

	log.WithFields(l.LogTags).Info("Venue link established, authorizing")
	return nil
}

// venueMsgEnvelope the subset of a venue message the link itself inspects
type venueMsgEnvelope struct {
	MsgType string `json:"msg_type"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// readLoop single reader pumping inbound venue messages toward the fan-out.
// Dispatch happens from this one goroutine, which is what preserves receipt
// order across a session's sinks.
func (l *linkImpl) readLoop() {
	defer log.WithFields(l.LogTags).Debug("Read loop exiting")
	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			if l.State() == LinkClosed {
				return
			}
			log.WithError(err).WithFields(l.LogTags).Error("Venue transport read failed")
			l.fail(err)
			return
		}

		// Pass-through first, regardless of state
		l.params.OnEvent(json.RawMessage(raw))

		var envelope venueMsgEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			log.WithError(err).WithFields(l.LogTags).Warn("Unparsable venue message")
			continue
		}
		if envelope.MsgType == "authorize" && l.State() == LinkAuthorizing {
			if envelope.Error != nil {
				err := fmt.Errorf(
					"venue rejected authorization: %s", envelope.Error.Message,
				)
				log.WithError(err).WithFields(l.LogTags).Error("Authorization failed")
				l.fail(err)
				return
			}
			l.mu.Lock()
			l.state = LinkAuthorized
			authTimer := l.authTimer
			l.mu.Unlock()
			if authTimer != nil {
				_ = authTimer.Stop()
			}
			log.WithFields(l.LogTags).Info("Venue link authorized")
		}
	}
}

// SendCommand marshal and write a command payload over the link
func (l *linkImpl) SendCommand(ctxt context.Context, payload interface{}) error {
	if err := ctxt.Err(); err != nil {
		return err
	}
	switch l.State() {
	case LinkAuthorized:
	case LinkConnecting, LinkAuthorizing:
		return ErrNotAuthorized
	default:
		return ErrLinkNotReady
	}
	if err := l.writePayload(payload); err != nil {
		log.WithError(err).WithFields(l.LogTags).Error("Venue transport write failed")
		l.fail(err)
		return err
	}
	return nil
}

func (l *linkImpl) writePayload(payload interface{}) error {
	serialize, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(websocket.TextMessage, serialize)
}

// State read the current lifecycle state
func (l *linkImpl) State() LinkState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// fail transition to the absorbing failed state and signal the owning
// session. Later transport errors triggered by the teardown are ignored.
func (l *linkImpl) fail(err error) {
	l.mu.Lock()
	if l.state == LinkClosed || l.state == LinkFailed {
		l.mu.Unlock()
		return
	}
	l.state = LinkFailed
	conn := l.conn
	authTimer := l.authTimer
	l.mu.Unlock()

	if authTimer != nil {
		_ = authTimer.Stop()
	}
	if conn != nil {
		_ = conn.Close()
	}
	log.WithFields(l.LogTags).Warn("Venue link entered failed state")
	l.params.OnFailure(err)
}

// Close tear down the link
func (l *linkImpl) Close() error {
	l.mu.Lock()
	if l.state == LinkClosed || l.state == LinkFailed {
		l.mu.Unlock()
		return nil
	}
	l.state = LinkClosed
	conn := l.conn
	authTimer := l.authTimer
	l.mu.Unlock()

	if authTimer != nil {
		_ = authTimer.Stop()
	}
	if conn != nil {
		l.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		l.writeMu.Unlock()
		if err := conn.Close(); err != nil {
			return err
		}
	}
	log.WithFields(l.LogTags).Info("Venue link closed")
	return nil
}
