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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mounzok/deriv-relay/apis"
	"github.com/mounzok/deriv-relay/common"
	"github.com/mounzok/deriv-relay/core"
	"github.com/mounzok/deriv-relay/ratelimit"
	"github.com/mounzok/deriv-relay/session"
	"github.com/nats-io/nats.go"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunRelayServer run the relay server
func RunRelayServer(
	runtimeContext context.Context,
	config *common.SystemConfig,
	instance string,
	wg *sync.WaitGroup,
) error {
	logTags := log.Fields{
		"module":    "cmd",
		"component": "relay",
		"instance":  instance,
	}

	if config.Relay == nil {
		return fmt.Errorf("relay server can't start without its configurations")
	}
	relayConfig := config.Relay

	// -------------------------------------------------------------------
	// Define the components

	var mirror session.EventMirror
	var natsClient *core.NatsClient
	if config.Mirror != nil {
		client, err := core.GetNatsClient(core.NATSConnectParams{
			ServerURI:           config.Mirror.NATS.ServerURI,
			ConnectTimeout:      time.Second * time.Duration(config.Mirror.NATS.ConnectTimeout),
			MaxReconnectAttempt: config.Mirror.NATS.Reconnect.MaxAttempts,
			ReconnectWait:       time.Second * time.Duration(config.Mirror.NATS.Reconnect.WaitInterval),
			OnDisconnectCallback: func(_ *nats.Conn, e error) {
				log.WithError(e).WithFields(logTags).Warn("NATS client disconnected")
			},
			OnReconnectCallback: func(_ *nats.Conn) {
				log.WithFields(logTags).Info("NATS client reconnected")
			},
		})
		if err != nil {
			log.WithError(err).WithFields(logTags).Errorf(
				"Failed to define NATS client with %s", config.Mirror.NATS.ServerURI,
			)
			return err
		}
		natsClient = &client
		eventMirror, err := core.GetNatsEventMirror(client, config.Mirror.SubjectPrefix)
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("Unable to define event mirror")
			return err
		}
		mirror = eventMirror
	}

	registry, err := session.GetSessionRegistry(
		runtimeContext, session.RegistryParams{Venue: config.Venue, Mirror: mirror}, wg,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define session registry")
		return err
	}

	var admission ratelimit.OrderAdmission
	if relayConfig.Admission.Enabled {
		admission = ratelimit.GetSlidingWindowAdmission(
			relayConfig.Admission.MaxOrders,
			time.Second*time.Duration(relayConfig.Admission.WindowSec),
		)
	} else {
		admission = ratelimit.GetAllowAllAdmission()
	}

	localCtxt, lclCancel := context.WithCancel(runtimeContext)
	defer lclCancel()
	httpHandler, err := apis.GetAPIRestRelayHandler(
		localCtxt,
		registry,
		&relayConfig.HTTPSetting,
		relayConfig.Stream,
		admission,
		wg,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define HTTP handler")
		return err
	}

	// -------------------------------------------------------------------
	// Start the HTTP server

	router := mux.NewRouter()
	mainRouter := apis.RegisterPathPrefix(router, relayConfig.Endpoints.PathPrefix, nil)

	// Session lifecycle
	sessionAPIRouter := apis.RegisterPathPrefix(
		mainRouter, "/v1/session", map[string]http.HandlerFunc{
			"post": httpHandler.ConnectHandler(),
		},
	)
	perSessionAPIRouter := apis.RegisterPathPrefix(
		sessionAPIRouter, "/{sessionID}", map[string]http.HandlerFunc{
			"delete": httpHandler.DisconnectHandler(),
		},
	)

	// Event stream
	_ = apis.RegisterPathPrefix(perSessionAPIRouter, "/events", map[string]http.HandlerFunc{
		"get": httpHandler.OpenStreamHandler(),
	})

	// Commands
	_ = apis.RegisterPathPrefix(perSessionAPIRouter, "/subscribe", map[string]http.HandlerFunc{
		"post": httpHandler.SubscribeHandler(),
	})
	_ = apis.RegisterPathPrefix(perSessionAPIRouter, "/unsubscribe", map[string]http.HandlerFunc{
		"post": httpHandler.UnsubscribeHandler(),
	})
	_ = apis.RegisterPathPrefix(perSessionAPIRouter, "/order", map[string]http.HandlerFunc{
		"post": httpHandler.PlaceOrderHandler(),
	})

	// Health check
	_ = apis.RegisterPathPrefix(mainRouter, "/alive", map[string]http.HandlerFunc{
		"get": httpHandler.AliveHandler(),
	})
	_ = apis.RegisterPathPrefix(mainRouter, "/ready", map[string]http.HandlerFunc{
		"get": httpHandler.ReadyHandler(),
	})

	// Browser clients connect cross origin
	router.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{
			"Content-Type", relayConfig.HTTPSetting.Logging.RequestIDHeader,
		}),
	))

	// Add logging
	router.Use(func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(httpHandler, next)
	})

	serverListen := fmt.Sprintf(
		"%s:%d",
		relayConfig.HTTPSetting.Server.ListenOn,
		relayConfig.HTTPSetting.Server.Port,
	)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(relayConfig.HTTPSetting.Server.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(relayConfig.HTTPSetting.Server.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(relayConfig.HTTPSetting.Server.IdleTimeout),
		Handler:      h2c.NewHandler(router, &http2.Server{}),
	}

	// Cancel runtime context on shutdown
	httpSrv.RegisterOnShutdown(lclCancel)

	// Start the server
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP Server Failure")
		}
	}()

	log.WithFields(logTags).Infof("Started HTTP server on http://%s", serverListen)

	// ============================================================================

	<-runtimeContext.Done()

	// Stop the HTTP server
	{
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Failure during HTTP shutdown")
		}
	}

	// Tear down the remaining sessions
	{
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := registry.Close(ctx); err != nil {
			log.WithError(err).Error("Failure during registry shutdown")
		}
		if natsClient != nil {
			natsClient.Close(ctx)
		}
	}

	return nil
}
