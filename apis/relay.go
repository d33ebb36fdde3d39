// Copyright 2024 The deriv-relay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/mounzok/deriv-relay/common"
	"github.com/mounzok/deriv-relay/ratelimit"
	"github.com/mounzok/deriv-relay/session"
	"github.com/mounzok/deriv-relay/venue"
)

// APIRestRelayHandler REST handler for the relay command gateway and the
// client facing event streams
type APIRestRelayHandler struct {
	goutils.RestAPIHandler
	registry    session.Registry
	admission   ratelimit.OrderAdmission
	streamCfg   common.EventStreamConfig
	validate    *validator.Validate
	baseContext context.Context
	wg          *sync.WaitGroup
}

// GetAPIRestRelayHandler define APIRestRelayHandler
func GetAPIRestRelayHandler(
	baseContext context.Context,
	registry session.Registry,
	httpConfig *common.HTTPConfig,
	streamConfig common.EventStreamConfig,
	admission ratelimit.OrderAdmission,
	wg *sync.WaitGroup,
) (APIRestRelayHandler, error) {
	logTags := log.Fields{
		"module":    "rest",
		"component": "relay",
	}
	return APIRestRelayHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: logTags,
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
				},
			},
			CallRequestIDHeaderField: &httpConfig.Logging.RequestIDHeader,
			DoNotLogHeaders: func() map[string]bool {
				result := map[string]bool{}
				for _, v := range httpConfig.Logging.DoNotLogHeaders {
					result[v] = true
				}
				return result
			}(),
		},
		registry:    registry,
		admission:   admission,
		streamCfg:   streamConfig,
		validate:    validator.New(),
		baseContext: baseContext,
		wg:          wg,
	}, nil
}

// Write logging support
func (h APIRestRelayHandler) Write(p []byte) (n int, err error) {
	log.WithFields(h.LogTags).Infof("%s", p)
	return len(p), nil
}

// errorToRespCode map the session / venue error taxonomy onto HTTP statuses
func errorToRespCode(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidCredential):
		return http.StatusBadRequest
	case errors.Is(err, venue.ErrNotAuthorized), errors.Is(err, venue.ErrLinkNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// =======================================================================
// Session lifecycle

// APIRestReqConnect parameters to open a new session
type APIRestReqConnect struct {
	// Token is the opaque venue credential
	Token string `json:"token" validate:"required"`
}

// APIRestRespSessionID response carrying a new session ID
type APIRestRespSessionID struct {
	goutils.RestAPIBaseResponse
	// SessionID the newly created session
	SessionID string `json:"session_id"`
}

// Connect godoc
// @Summary Open a new relay session
// @Description Open a relay session for a venue credential. The venue link
// is established in the background; watch the event stream for the
// authorization result.
// @tags Relay
// @Accept json
// @Produce json
// @Param Relay-Request-ID header string false "User provided request ID to match against logs"
// @Param credential body APIRestReqConnect true "Venue credential"
// @Success 200 {object} APIRestRespSessionID "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/session [post]
func (h APIRestRelayHandler) Connect(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	var params APIRestReqConnect
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	if err := h.validate.Struct(&params); err != nil {
		msg := "No credential provided"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	sessionID, err := h.registry.CreateSession(r.Context(), params.Token)
	if err != nil {
		msg := "Unable to create session"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorToRespCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespSessionID{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()),
		SessionID:           sessionID,
	}
}

// ConnectHandler Wrapper around Connect
func (h APIRestRelayHandler) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Connect(w, r)
	}
}

// -----------------------------------------------------------------------

// Disconnect godoc
// @Summary End a relay session
// @Description Tear down a session's venue link, close its event streams,
// and remove it. Always succeeds, also when the session is already gone.
// @tags Relay
// @Produce json
// @Param Relay-Request-ID header string false "User provided request ID to match against logs"
// @Param sessionID path string true "Session ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/session/{sessionID} [delete]
func (h APIRestRelayHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	sessionID, ok := vars["sessionID"]
	if !ok {
		msg := "No session ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	if err := h.registry.DeleteSession(r.Context(), sessionID); err != nil {
		msg := fmt.Sprintf("Unable to delete session %s", sessionID)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusInternalServerError
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = h.GetStdRESTSuccessMsg(r.Context())
}

// DisconnectHandler Wrapper around Disconnect
func (h APIRestRelayHandler) DisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Disconnect(w, r)
	}
}

// =======================================================================
// Commands

// APIRestReqSymbol parameters naming a venue symbol
type APIRestReqSymbol struct {
	// Symbol is the venue symbol
	Symbol string `json:"symbol" validate:"required"`
}

// APIRestRespSubscription response carrying a new subscription record
type APIRestRespSubscription struct {
	goutils.RestAPIBaseResponse
	// SubscriptionID the tracking ID of the new subscription
	SubscriptionID string `json:"subscription_id"`
	// Symbol the subscribed venue symbol
	Symbol string `json:"symbol"`
}

// Subscribe godoc
// @Summary Subscribe to venue tick data
// @Description Send a tick subscribe command for a symbol over the
// session's venue link. Venue acceptance arrives asynchronously on the
// event stream.
// @tags Relay
// @Accept json
// @Produce json
// @Param Relay-Request-ID header string false "User provided request ID to match against logs"
// @Param sessionID path string true "Session ID"
// @Param symbol body APIRestReqSymbol true "Venue symbol"
// @Success 200 {object} APIRestRespSubscription "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/session/{sessionID}/subscribe [post]
func (h APIRestRelayHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	sessionID, ok := vars["sessionID"]
	if !ok {
		msg := "No session ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	var params APIRestReqSymbol
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	if err := h.validate.Struct(&params); err != nil {
		msg := "No symbol provided"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	subID, err := h.registry.SubscribeTicks(r.Context(), sessionID, params.Symbol)
	if err != nil {
		msg := fmt.Sprintf("Unable to subscribe to %s", params.Symbol)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorToRespCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespSubscription{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()),
		SubscriptionID:      subID,
		Symbol:              params.Symbol,
	}
}

// SubscribeHandler Wrapper around Subscribe
func (h APIRestRelayHandler) SubscribeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Subscribe(w, r)
	}
}

// -----------------------------------------------------------------------

// Unsubscribe godoc
// @Summary Unsubscribe from venue tick data
// @Description Send a tick unsubscribe command for a symbol over the
// session's venue link. Succeeds also when the symbol was never subscribed;
// the venue is the authority on subscription state.
// @tags Relay
// @Accept json
// @Produce json
// @Param Relay-Request-ID header string false "User provided request ID to match against logs"
// @Param sessionID path string true "Session ID"
// @Param symbol body APIRestReqSymbol true "Venue symbol"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/session/{sessionID}/unsubscribe [post]
func (h APIRestRelayHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	sessionID, ok := vars["sessionID"]
	if !ok {
		msg := "No session ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	var params APIRestReqSymbol
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	if err := h.validate.Struct(&params); err != nil {
		msg := "No symbol provided"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	if err := h.registry.UnsubscribeTicks(r.Context(), sessionID, params.Symbol); err != nil {
		msg := fmt.Sprintf("Unable to unsubscribe from %s", params.Symbol)
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorToRespCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = h.GetStdRESTSuccessMsg(r.Context())
}

// UnsubscribeHandler Wrapper around Unsubscribe
func (h APIRestRelayHandler) UnsubscribeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Unsubscribe(w, r)
	}
}

// -----------------------------------------------------------------------

// APIRestReqOrder parameters for placing an order. Every field is optional;
// unset fields take the documented defaults.
type APIRestReqOrder struct {
	// ContractType venue contract type
	ContractType string `json:"contract_type" validate:"omitempty,oneof=CALL PUT"`
	// Amount contract price
	Amount float64 `json:"amount" validate:"gte=0"`
	// Symbol venue symbol
	Symbol string `json:"symbol"`
	// Duration contract duration
	Duration int `json:"duration" validate:"gte=0"`
	// DurationUnit contract duration unit
	DurationUnit string `json:"duration_unit" validate:"omitempty,oneof=t s m h d"`
	// Basis contract basis
	Basis string `json:"basis" validate:"omitempty,oneof=payout stake"`
}

// APIRestRespOrderSent response acknowledging an order placement was sent
type APIRestRespOrderSent struct {
	goutils.RestAPIBaseResponse
	// Note reminder that sending is not filling
	Note string `json:"note"`
}

// PlaceOrder godoc
// @Summary Place an order
// @Description Send an order placement command over the session's venue
// link. Acknowledges the request was sent, not filled; the result arrives
// asynchronously on the event stream. Subject to the order admission policy.
// @tags Relay
// @Accept json
// @Produce json
// @Param Relay-Request-ID header string false "User provided request ID to match against logs"
// @Param sessionID path string true "Session ID"
// @Param order body APIRestReqOrder false "Order parameters"
// @Success 200 {object} APIRestRespOrderSent "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 429 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/session/{sessionID}/order [post]
func (h APIRestRelayHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	sessionID, ok := vars["sessionID"]
	if !ok {
		msg := "No session ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	// An empty body is a valid all-defaults order
	var params APIRestReqOrder
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && err != io.EOF {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	if err := h.validate.Struct(&params); err != nil {
		msg := "Invalid order parameters"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	orderSpec := venue.OrderSpec{
		ContractType: params.ContractType,
		Amount:       params.Amount,
		Symbol:       params.Symbol,
		Duration:     params.Duration,
		DurationUnit: params.DurationUnit,
		Basis:        params.Basis,
	}

	admissionKey := fmt.Sprintf("%s/%s", sessionID, venue.NewBuyRequest(orderSpec).Parameters.Symbol)
	if !h.admission.Allow(admissionKey) {
		msg := "Order placement rate limited"
		log.WithFields(localLogTags).Warn(msg)
		respCode = http.StatusTooManyRequests
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusTooManyRequests, msg, msg)
		return
	}

	if err := h.registry.PlaceOrder(r.Context(), sessionID, orderSpec); err != nil {
		msg := "Unable to place order"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorToRespCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespOrderSent{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()),
		Note:                "order request sent; watch the event stream for the result",
	}
}

// PlaceOrderHandler Wrapper around PlaceOrder
func (h APIRestRelayHandler) PlaceOrderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.PlaceOrder(w, r)
	}
}

// =======================================================================
// Event stream

// OpenStream godoc
// @Summary Open a session event stream
// @Description Establish a long lived server sent event stream carrying
// every venue message for the session, verbatim, in receipt order. The
// stream closes on client disconnect, session deletion, or server
// shutdown.
// @tags Relay
// @Produce text/event-stream
// @Param Relay-Request-ID header string false "User provided request ID to match against logs"
// @Param sessionID path string true "Session ID"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/session/{sessionID}/events [get]
func (h APIRestRelayHandler) OpenStream(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	streaming := false
	defer func() {
		// Once event framing started the JSON envelope no longer applies
		if streaming {
			return
		}
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	sessionID, ok := vars["sessionID"]
	if !ok {
		msg := "No session ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	logTags := localLogTags
	logTags["session"] = sessionID

	writeFlusher, ok := w.(http.Flusher)
	if !ok {
		msg := "Streaming not supported"
		log.WithFields(logTags).Error(msg)
		respCode = http.StatusInternalServerError
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, msg)
		return
	}

	// A sink attached after an event was broadcast never sees that event.
	// No replay.
	sink := session.GetBufferedEventSink(h.streamCfg.SinkBufferLen)
	if err := h.registry.AttachSink(sessionID, sink); err != nil {
		msg := fmt.Sprintf("Session %s not available for streaming", sessionID)
		log.WithError(err).WithFields(logTags).Error(msg)
		sink.Close()
		respCode = errorToRespCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}
	defer h.registry.DetachSink(sessionID, sink)

	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)

	streaming = true
	if _, err := fmt.Fprintf(w, "retry: %d\n\n", h.streamCfg.RetryHintMS); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to start event stream")
		return
	}
	writeFlusher.Flush()

	// Keep-alive ticks come through a channel so all stream writes stay on
	// this goroutine
	keepAlive := make(chan bool, 1)
	keepAliveTimer, err := common.GetIntervalTimerInstance(
		fmt.Sprintf("sse-keep-alive/%s", sessionID), r.Context(), h.wg,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define keep-alive timer")
		return
	}
	if err := keepAliveTimer.Start(
		time.Second*time.Duration(h.streamCfg.KeepAliveInterval), func() error {
			select {
			case keepAlive <- true:
			default:
			}
			return nil
		}, false,
	); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start keep-alive timer")
		return
	}
	defer func() {
		_ = keepAliveTimer.Stop()
	}()

	log.WithFields(logTags).Info("Event stream established")
	for {
		select {
		case <-h.baseContext.Done():
			log.WithFields(logTags).Info("Terminating event stream on server stop")
			return
		case <-r.Context().Done():
			log.WithFields(logTags).Info("Terminating event stream on client disconnect")
			return
		case <-keepAlive:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				log.WithError(err).WithFields(logTags).Info("Event stream write failed")
				return
			}
			writeFlusher.Flush()
		case event, ok := <-sink.Events():
			if !ok {
				// Sink closed underneath us, the session is gone
				log.WithFields(logTags).Info("Terminating event stream on session end")
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", event); err != nil {
				log.WithError(err).WithFields(logTags).Info("Event stream write failed")
				return
			}
			writeFlusher.Flush()
		}
	}
}

// OpenStreamHandler Wrapper around OpenStream
func (h APIRestRelayHandler) OpenStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.OpenStream(w, r)
	}
}

// =======================================================================
// Health Checks

// Alive godoc
// @Summary For relay REST API liveness check
// @Description Will return success to indicate the relay REST API is live
// @tags Relay
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /alive [get]
func (h APIRestRelayHandler) Alive(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h APIRestRelayHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// -----------------------------------------------------------------------

// Ready godoc
// @Summary For relay REST API readiness check
// @Description Will return success if the relay REST API is ready for use
// @tags Relay
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /ready [get]
func (h APIRestRelayHandler) Ready(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// ReadyHandler Wrapper around Ready
func (h APIRestRelayHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}
