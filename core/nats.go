package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/mounzok/deriv-relay/common"
	"github.com/nats-io/nats.go"
)

// NATSConnectParams NATS connection parameter
type NATSConnectParams struct {
	// ServerURI connect to NATS cluster with URI
	ServerURI string `validate:"required,uri"`
	// ConnectTimeout max time to wait for connection
	ConnectTimeout time.Duration
	// MaxReconnectAttempt on connection failure, max number of reconnect
	// attempt. "-1" means infinite
	MaxReconnectAttempt int
	// ReconnectWait wait duration between reconnect attempts
	ReconnectWait time.Duration
	// OnDisconnectCallback callback on disconnect
	OnDisconnectCallback func(*nats.Conn, error)
	// OnReconnectCallback callback on reconnect
	OnReconnectCallback func(*nats.Conn)
	// OnCloseCallback callback on close
	OnCloseCallback func(*nats.Conn)
}

// NatsClient NATS client used by the event mirror
type NatsClient struct {
	common.Component
	nc *nats.Conn
}

// NATs fetch the NATS connection
func (c NatsClient) NATs() *nats.Conn {
	return c.nc
}

// Close close the NATS client
func (c NatsClient) Close(ctxt context.Context) {
	if err := c.nc.FlushWithContext(ctxt); err != nil {
		log.WithError(err).WithFields(c.LogTags).Errorf("NATS flush failed")
	}
	c.nc.Close()
	log.WithFields(c.LogTags).Infof("Close NATS client")
}

// GetNatsClient define a new NATS client
func GetNatsClient(param NATSConnectParams) (NatsClient, error) {
	logTags := log.Fields{
		"module":    "core",
		"component": "nats-backend",
		"instance":  param.ServerURI,
	}
	nc, err := nats.Connect(
		param.ServerURI,
		nats.Timeout(param.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(param.MaxReconnectAttempt),
		nats.ReconnectWait(param.ReconnectWait),
		nats.DisconnectErrHandler(param.OnDisconnectCallback),
		nats.ReconnectHandler(param.OnReconnectCallback),
		nats.ClosedHandler(param.OnCloseCallback),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("NATS client connect failed")
		return NatsClient{}, err
	}
	log.WithFields(logTags).Info("Created NATS client")
	return NatsClient{
		Component: common.Component{LogTags: logTags},
		nc:        nc,
	}, nil
}

// ==============================================================================

// NatsEventMirror republishes every fanned out venue event onto NATS, one
// subject per session. Best effort; a publish failure never affects the
// client facing fan-out.
type NatsEventMirror struct {
	common.Component
	client        NatsClient
	subjectPrefix string
}

// GetNatsEventMirror define a NATS backed event mirror
func GetNatsEventMirror(client NatsClient, subjectPrefix string) (*NatsEventMirror, error) {
	if subjectPrefix == "" {
		return nil, fmt.Errorf("event mirror requires a subject prefix")
	}
	logTags := log.Fields{
		"module":    "core",
		"component": "event-mirror",
	}
	return &NatsEventMirror{
		Component:     common.Component{LogTags: logTags},
		client:        client,
		subjectPrefix: subjectPrefix,
	}, nil
}

// MirrorEvent publish one venue event on the session's mirror subject
func (m *NatsEventMirror) MirrorEvent(sessionID string, event json.RawMessage) {
	subject := fmt.Sprintf("%s.%s", m.subjectPrefix, sessionID)
	if err := m.client.NATs().Publish(subject, event); err != nil {
		log.WithError(err).WithFields(m.LogTags).Warnf(
			"Failed to mirror event on %s", subject,
		)
	}
}
