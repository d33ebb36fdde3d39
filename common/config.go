package common

import "github.com/spf13/viper"

// ===============================================================================
// Venue Related Config

// VenueConfig defines parameters for connecting to the upstream trading venue
type VenueConfig struct {
	// WSURL is the venue websocket endpoint
	WSURL string `mapstructure:"ws_url" json:"ws_url" validate:"required,uri"`
	// ConnectTimeout is the max duration for the websocket dial in seconds
	ConnectTimeout int `mapstructure:"connect_timeout_sec" json:"connect_timeout_sec" validate:"gte=1"`
	// AuthTimeout is the max duration to wait for the venue authorization
	// acknowledgment in seconds. A link which has not authorized within this
	// window is considered failed.
	AuthTimeout int `mapstructure:"auth_timeout_sec" json:"auth_timeout_sec" validate:"gte=1"`
}

// ===============================================================================
// HTTP Related Config

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"required,gt=0,lt=65536"`
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout. Must remain zero for the event
	// stream endpoint to stay open indefinitely.
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle_timeout_sec" json:"idle_timeout_sec" validate:"gte=0"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"request_id_header" json:"request_id_header"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"do_not_log_headers" json:"do_not_log_headers"`
}

// HTTPConfig defines HTTP API / server parameters
type HTTPConfig struct {
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"server_config" json:"server_config" validate:"required,dive"`
	// Logging defines operation logging parameters
	Logging HTTPRequestLogging `mapstructure:"logging_config" json:"logging_config" validate:"required,dive"`
}

// ===============================================================================
// Event Stream Related Config

// EventStreamConfig defines parameters for the client facing push streams
type EventStreamConfig struct {
	// RetryHintMS is the client auto-reconnect retry hint sent at stream
	// start in milliseconds
	RetryHintMS int `mapstructure:"retry_hint_ms" json:"retry_hint_ms" validate:"gte=100"`
	// KeepAliveInterval is the interval between keep-alive comments on an
	// otherwise idle stream in seconds
	KeepAliveInterval int `mapstructure:"keep_alive_interval_sec" json:"keep_alive_interval_sec" validate:"gte=1"`
	// SinkBufferLen is the per-sink event buffer length. A sink whose
	// buffer overflows is dropped rather than allowed to stall the others.
	SinkBufferLen int `mapstructure:"sink_buffer_len" json:"sink_buffer_len" validate:"gte=1"`
}

// ===============================================================================
// Order Admission Related Config

// OrderAdmissionConfig defines the order placement admission policy parameters
type OrderAdmissionConfig struct {
	// Enabled controls whether order placement rate limiting is active
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// MaxOrders is the max number of orders admitted per window per
	// (session, symbol) pair
	MaxOrders int `mapstructure:"max_orders" json:"max_orders" validate:"gte=1"`
	// WindowSec is the admission window duration in seconds
	WindowSec int `mapstructure:"window_sec" json:"window_sec" validate:"gte=1"`
}

// ===============================================================================
// NATS Related Config

// NATSReconnectConfig defines reconnect parameters
type NATSReconnectConfig struct {
	// MaxAttempts sets the max number of reconnect attempts (-1 is unlimited)
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" validate:"gte=-1"`
	// WaitInterval is the duration between reconnect attempts in seconds
	WaitInterval int `mapstructure:"wait_interval_sec" json:"wait_interval_sec" validate:"gte=1"`
}

// NATSConfig defines parameters for connecting to NATS server
type NATSConfig struct {
	// ServerURI is the NATS connection URI
	ServerURI string `mapstructure:"server_uri" json:"server_uri" validate:"required,uri"`
	// ConnectTimeout is the max duration for connecting to NATS server in seconds
	ConnectTimeout int `mapstructure:"connect_timeout_sec" json:"connect_timeout_sec" validate:"gte=1"`
	// Reconnect defines reconnect parameters
	Reconnect NATSReconnectConfig `mapstructure:"reconnect" json:"reconnect" validate:"required,dive"`
}

// EventMirrorConfig defines the optional NATS event mirror. When present,
// every venue event fanned out to a session's sinks is also published on
// "<subject_prefix>.<sessionID>" for backend consumers.
type EventMirrorConfig struct {
	// NATS are the NATS connection parameters
	NATS NATSConfig `mapstructure:"nats" json:"nats" validate:"required,dive"`
	// SubjectPrefix is the publish subject prefix
	SubjectPrefix string `mapstructure:"subject_prefix" json:"subject_prefix" validate:"required"`
}

// ===============================================================================
// Complete Config

// RelayEndpointConfig defines relay API endpoint config
type RelayEndpointConfig struct {
	// PathPrefix is the end-point path prefix for the relay APIs
	PathPrefix string `mapstructure:"path_prefix" json:"path_prefix" validate:"required"`
}

// RelayServerConfig defines configuration for the relay API server
type RelayServerConfig struct {
	// HTTPSetting is the HTTP API / server parameters for the relay API server
	HTTPSetting HTTPConfig `mapstructure:"api_server" json:"api_server" validate:"required,dive"`
	// Endpoints is the API endpoint config parameters for the relay API server
	Endpoints RelayEndpointConfig `mapstructure:"endpoint_config" json:"endpoint_config" validate:"required,dive"`
	// Stream is the client facing event stream parameters
	Stream EventStreamConfig `mapstructure:"event_stream" json:"event_stream" validate:"required,dive"`
	// Admission is the order placement admission policy parameters
	Admission OrderAdmissionConfig `mapstructure:"order_admission" json:"order_admission" validate:"required,dive"`
}

// SystemConfig defines the complete system config
type SystemConfig struct {
	// Venue are the upstream venue related config parameters
	Venue VenueConfig `mapstructure:"venue" json:"venue" validate:"required,dive"`
	// Relay are the relay API server configs
	Relay *RelayServerConfig `mapstructure:"relay,omitempty" json:"relay,omitempty" validate:"omitempty,dive"`
	// Mirror are the optional NATS event mirror configs
	Mirror *EventMirrorConfig `mapstructure:"mirror,omitempty" json:"mirror,omitempty" validate:"omitempty,dive"`
}

// ===============================================================================

// InstallDefaultConfigValues installs default config parameters in viper
func InstallDefaultConfigValues() {
	// Default venue settings
	viper.SetDefault("venue.ws_url", "wss://ws.binaryws.com/websockets/v3?app_id=1089&l=EN")
	viper.SetDefault("venue.connect_timeout_sec", 10)
	viper.SetDefault("venue.auth_timeout_sec", 30)

	// Default relay server settings
	viper.SetDefault("relay.endpoint_config.path_prefix", "/")
	viper.SetDefault("relay.api_server.server_config.listen_on", "0.0.0.0")
	viper.SetDefault("relay.api_server.server_config.listen_port", 3000)
	viper.SetDefault("relay.api_server.server_config.read_timeout_sec", 60)
	viper.SetDefault("relay.api_server.server_config.write_timeout_sec", 0)
	viper.SetDefault("relay.api_server.server_config.idle_timeout_sec", 600)
	viper.SetDefault(
		"relay.api_server.logging_config.request_id_header", "Relay-Request-ID",
	)
	viper.SetDefault(
		"relay.api_server.logging_config.do_not_log_headers", []string{
			"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
		},
	)
	viper.SetDefault("relay.event_stream.retry_hint_ms", 2000)
	viper.SetDefault("relay.event_stream.keep_alive_interval_sec", 30)
	viper.SetDefault("relay.event_stream.sink_buffer_len", 64)
	viper.SetDefault("relay.order_admission.enabled", true)
	viper.SetDefault("relay.order_admission.max_orders", 1)
	viper.SetDefault("relay.order_admission.window_sec", 5)
}
