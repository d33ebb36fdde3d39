package session

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/mounzok/deriv-relay/common"
	"github.com/mounzok/deriv-relay/venue"
)

// EventMirror optional tap receiving every venue event fanned out by a
// session, e.g. for republishing onto a message broker
type EventMirror interface {
	MirrorEvent(sessionID string, event json.RawMessage)
}

// Session a client's authenticated context: exactly one venue link, any
// number of downstream sinks, and the set of active subscription records.
// The session owns the link and the sinks; both hold at most the session ID
// as a back-reference.
type Session struct {
	common.Component
	id         string
	credential string
	link       venue.Link
	tp         common.TaskProcessor
	ctxt       context.Context
	cancel     context.CancelFunc
	mirror     EventMirror

	mu            sync.RWMutex
	closed        bool
	sinks         map[Sink]bool
	subscriptions map[string]string
}

// newSession define a session shell. The venue link is injected by the
// registry once its callbacks are bound to this session.
func newSession(
	parentCtxt context.Context,
	id string,
	credential string,
	mirror EventMirror,
) (*Session, error) {
	logTags := log.Fields{
		"module":    "session",
		"component": "session",
		"session":   id,
	}
	ctxt, cancel := context.WithCancel(parentCtxt)
	tp, err := common.GetNewTaskProcessorInstance(
		fmt.Sprintf("session/%s", id), 16, ctxt,
	)
	if err != nil {
		cancel()
		return nil, err
	}
	instance := &Session{
		Component:     common.Component{LogTags: logTags},
		id:            id,
		credential:    credential,
		tp:            tp,
		ctxt:          ctxt,
		cancel:        cancel,
		mirror:        mirror,
		sinks:         make(map[Sink]bool),
		subscriptions: make(map[string]string),
	}
	// Command handlers all run on the session event loop, serializing
	// outbound commands onto the one venue link
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(sessionSubscribeReq{}), instance.processSubscribe,
	); err != nil {
		cancel()
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(sessionUnsubscribeReq{}), instance.processUnsubscribe,
	); err != nil {
		cancel()
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(sessionPlaceOrderReq{}), instance.processPlaceOrder,
	); err != nil {
		cancel()
		return nil, err
	}
	return instance, nil
}

// ID the session identifier
func (s *Session) ID() string {
	return s.id
}

// LinkState the current venue link lifecycle state
func (s *Session) LinkState() venue.LinkState {
	return s.link.State()
}

// Subscriptions snapshot of the active subscription records, keyed by
// subscription ID
func (s *Session) Subscriptions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make(map[string]string, len(s.subscriptions))
	for subID, symbol := range s.subscriptions {
		records[subID] = symbol
	}
	return records
}

// SinkCount number of currently attached sinks
func (s *Session) SinkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}

// ========================================================================
// Fan-out

// dispatchEvent broadcast one inbound venue event to every attached sink.
// Called only from the link read loop, so sinks observe events in receipt
// order. A failing sink is detached and closed; delivery to the remaining
// sinks continues.
func (s *Session) dispatchEvent(event json.RawMessage) {
	s.mu.RLock()
	targets := make([]Sink, 0, len(s.sinks))
	for sink := range s.sinks {
		targets = append(targets, sink)
	}
	s.mu.RUnlock()

	var broken []Sink
	for _, sink := range targets {
		if err := sink.SendEvent(event); err != nil {
			log.WithError(err).WithFields(s.LogTags).Warn("Dropping broken sink")
			broken = append(broken, sink)
		}
	}
	for _, sink := range broken {
		s.detachSink(sink)
		sink.Close()
	}

	if s.mirror != nil {
		s.mirror.MirrorEvent(s.id, event)
	}
}

// attachSink register a new sink with the session. A sink arriving after
// teardown is closed immediately so its stream ends instead of hanging open.
func (s *Session) attachSink(sink Sink) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sink.Close()
		return ErrSessionNotFound
	}
	s.sinks[sink] = true
	s.mu.Unlock()
	return nil
}

// detachSink remove a sink. Idempotent.
func (s *Session) detachSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sinks, sink)
}

// ========================================================================
// Command operations

type sessionSubscribeReq struct {
	symbol   string
	resultCB func(subID string, err error)
}

type sessionUnsubscribeReq struct {
	symbol   string
	resultCB func(err error)
}

type sessionPlaceOrderReq struct {
	request  venue.BuyRequest
	resultCB func(err error)
}

func (s *Session) processSubscribe(param interface{}) error {
	request, ok := param.(sessionSubscribeReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for subscribe", reflect.TypeOf(param),
		)
	}
	subID, err := s.handleSubscribe(request.symbol)
	request.resultCB(subID, err)
	return err
}

func (s *Session) handleSubscribe(symbol string) (string, error) {
	if err := s.link.SendCommand(
		s.ctxt, venue.NewTicksSubscribeRequest(symbol),
	); err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf(
			"Failed to send tick subscribe for %s", symbol,
		)
		return "", err
	}
	subID := fmt.Sprintf("ticks_%s_%d", symbol, time.Now().UnixMilli())
	s.mu.Lock()
	s.subscriptions[subID] = symbol
	s.mu.Unlock()
	log.WithFields(s.LogTags).Infof("Subscribed to %s as %s", symbol, subID)
	return subID, nil
}

func (s *Session) processUnsubscribe(param interface{}) error {
	request, ok := param.(sessionUnsubscribeReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for unsubscribe", reflect.TypeOf(param),
		)
	}
	err := s.handleUnsubscribe(request.symbol)
	request.resultCB(err)
	return err
}

func (s *Session) handleUnsubscribe(symbol string) error {
	if err := s.link.SendCommand(
		s.ctxt, venue.NewForgetTicksRequest(symbol),
	); err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf(
			"Failed to send tick unsubscribe for %s", symbol,
		)
		return err
	}
	// The venue is the authority on subscription state. Local records for
	// the symbol are cleared regardless of whether any existed.
	s.mu.Lock()
	for subID, recorded := range s.subscriptions {
		if recorded == symbol {
			delete(s.subscriptions, subID)
		}
	}
	s.mu.Unlock()
	log.WithFields(s.LogTags).Infof("Unsubscribed from %s", symbol)
	return nil
}

func (s *Session) processPlaceOrder(param interface{}) error {
	request, ok := param.(sessionPlaceOrderReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for place-order", reflect.TypeOf(param),
		)
	}
	err := s.handlePlaceOrder(request.request)
	request.resultCB(err)
	return err
}

func (s *Session) handlePlaceOrder(request venue.BuyRequest) error {
	if err := s.link.SendCommand(s.ctxt, request); err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf(
			"Failed to send order for %s", request.Parameters.Symbol,
		)
		return err
	}
	// Acknowledges the request was sent. Fill or rejection arrives
	// asynchronously through the event stream.
	log.WithFields(s.LogTags).Infof(
		"Order sent: %s %s x%g", request.Parameters.ContractType,
		request.Parameters.Symbol, request.Price,
	)
	return nil
}

// ========================================================================
// Teardown

// teardown close the venue link and every sink, then stop the session event
// loop. Link first, sinks second, so no sink can observe an event after its
// stream was told to end.
func (s *Session) teardown() {
	_ = s.link.Close()

	s.mu.Lock()
	s.closed = true
	sinks := make([]Sink, 0, len(s.sinks))
	for sink := range s.sinks {
		sinks = append(sinks, sink)
	}
	s.sinks = make(map[Sink]bool)
	s.mu.Unlock()
	for _, sink := range sinks {
		sink.Close()
	}

	s.cancel()
	log.WithFields(s.LogTags).Info("Session torn down")
}
