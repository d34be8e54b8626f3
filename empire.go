package empire

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/empire-trade/internal/api"
	"github.com/rickgao/empire-trade/internal/connection"
)

// Re-exported so callers can name what Client hands out.
type (
	// APIClient is the REST client returned by Client.API.
	APIClient = api.Client

	// Subscriber is the subscribe-only view of the trade socket.
	Subscriber = connection.Subscriber

	// Event is a socket event delivered to Subscriber handlers.
	Event = connection.Event

	// Handler receives socket events.
	Handler = connection.Handler
)

// ErrUnavailable is returned by Socket when realtime is disabled or the
// client is closed.
var ErrUnavailable = connection.ErrUnavailable

// Client bundles the REST API client and, optionally, the realtime session.
type Client struct {
	api     *api.Client
	manager connection.Manager
}

type options struct {
	apiKey     string
	baseURL    string
	userAgent  string
	realtime   bool
	socket     connection.ManagerConfig
	logger     *slog.Logger
	httpClient *http.Client
	timeout    time.Duration
	transport  connection.TransportFactory
}

// Option configures New.
type Option func(*options)

// WithAPIKey sets the API key. Without one, requests go out unauthenticated.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the REST base URL.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithUserAgent sets the User-Agent of REST requests.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithRealtime enables the trade socket session.
func WithRealtime(enabled bool) Option {
	return func(o *options) { o.realtime = enabled }
}

// WithSocketConfig replaces the realtime session settings.
func WithSocketConfig(cfg connection.ManagerConfig) Option {
	return func(o *options) { o.socket = cfg }
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient sets the HTTP client used for REST calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTimeout sets the REST request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func withTransportFactory(f connection.TransportFactory) Option {
	return func(o *options) { o.transport = f }
}

// New creates a Client. When realtime is enabled the session starts
// connecting in the background under ctx; New does not wait for it.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := options{
		baseURL: api.DefaultBaseURL,
		socket:  connection.DefaultManagerConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	apiOpts := []api.ClientOption{api.WithLogger(o.logger.With("component", "api"))}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	if o.userAgent != "" {
		apiOpts = append(apiOpts, api.WithUserAgent(o.userAgent))
	}
	if o.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(o.timeout))
	}

	c := &Client{
		api: api.NewClient(o.baseURL, o.apiKey, apiOpts...),
	}

	if !o.realtime {
		return c, nil
	}

	var mgrOpts []connection.ManagerOption
	if o.transport != nil {
		mgrOpts = append(mgrOpts, connection.WithTransportFactory(o.transport))
	}
	c.manager = connection.NewManager(o.socket, c.api, o.logger.With("component", "realtime"), mgrOpts...)
	if err := c.manager.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// API returns the REST client.
func (c *Client) API() *APIClient {
	return c.api
}

// Socket returns the subscribe-only socket view. It fails with
// ErrUnavailable when realtime is disabled or the client is closed.
func (c *Client) Socket() (Subscriber, error) {
	if c.manager == nil {
		return nil, ErrUnavailable
	}
	return c.manager.Socket()
}

// Stats returns realtime session statistics; the zero value when realtime
// is disabled.
func (c *Client) Stats() connection.ManagerStats {
	if c.manager == nil {
		return connection.ManagerStats{}
	}
	return c.manager.Stats()
}

// Close stops the realtime session, waiting at most until ctx is done.
func (c *Client) Close(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}
	return c.manager.Stop(ctx)
}
