// Package remote implements the anchor gateway against a remote anchor
// resource over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/valueobjects"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultResourcePath is where the anchor resource is mounted.
const DefaultResourcePath = "/immutable-text-anchor"

const maxResponseBytes = 10 << 20

// Gateway calls a remote anchor resource. It holds no state between calls
// beyond the HTTP client and its circuit breaker.
type Gateway struct {
	baseURL      string
	resourcePath string
	client       *http.Client
	transport    *breakerTransport
	logger       *zap.Logger
}

var _ ports.NodeAnchorGateway = (*Gateway)(nil)

type options struct {
	resourcePath string
	timeout      time.Duration
	transport    http.RoundTripper
	breaker      BreakerConfig
	logger       *zap.Logger
}

// Option configures a Gateway.
type Option func(*options)

// WithResourcePath overrides DefaultResourcePath.
func WithResourcePath(path string) Option {
	return func(o *options) { o.resourcePath = path }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithBreaker replaces the circuit breaker settings.
func WithBreaker(config BreakerConfig) Option {
	return func(o *options) { o.breaker = config }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewGateway creates a gateway for the resource served under baseURL.
func NewGateway(baseURL string, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	o := options{
		resourcePath: DefaultResourcePath,
		timeout:      30 * time.Second,
		breaker:      DefaultBreakerConfig("anchor-remote"),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	logger := o.logger.Named("remote_gateway")
	transport := newBreakerTransport(o.transport, o.breaker, logger)
	return &Gateway{
		baseURL:      strings.TrimRight(baseURL, "/"),
		resourcePath: "/" + strings.Trim(o.resourcePath, "/"),
		client:       &http.Client{Transport: transport, Timeout: o.timeout},
		transport:    transport,
		logger:       logger,
	}, nil
}

// BreakerState reports the state of the transport circuit breaker.
func (g *Gateway) BreakerState() gobreaker.State {
	return g.transport.State()
}

type dataBody struct {
	Data any `json:"data"`
}

func (g *Gateway) CreateAnchor(ctx context.Context, anchor *entities.Anchor) common.ServiceResponse[*entities.Anchor] {
	if anchor == nil {
		return common.Failure[*entities.Anchor]("input is null")
	}
	resp, err := call[*entities.Anchor](ctx, g, http.MethodPost, g.endpoint("/"), dataBody{Data: anchor})
	if err != nil {
		return common.Failure[*entities.Anchor]("Failed to create anchor. " + err.Error())
	}
	return resp
}

func (g *Gateway) GetAnchor(ctx context.Context, anchorID string) common.ServiceResponse[*entities.Anchor] {
	if err := valueobjects.ValidateAnchorID(anchorID); err != nil {
		return common.Failure[*entities.Anchor](err.Error())
	}
	resp, err := call[*entities.Anchor](ctx, g, http.MethodGet, g.endpoint("/"+url.PathEscape(anchorID)), nil)
	if err != nil {
		return common.Failure[*entities.Anchor]("Failed to call getAnchor endpoint.")
	}
	return resp
}

func (g *Gateway) GetAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[ports.AnchorMap] {
	if anchorIDs == nil {
		return common.Failure[ports.AnchorMap]("input is null")
	}
	if len(anchorIDs) == 0 {
		return common.Failure[ports.AnchorMap]("Failed to find any anchors at that path.")
	}
	segment, err := listSegment(anchorIDs)
	if err != nil {
		return common.Failure[ports.AnchorMap](err.Error())
	}
	resp, err := call[ports.AnchorMap](ctx, g, http.MethodGet, g.endpoint("/list/"+segment), nil)
	if err != nil {
		return common.Failure[ports.AnchorMap]("Failed to call getAnchor endpoint.")
	}
	return resp
}

func (g *Gateway) DeleteAnchor(ctx context.Context, anchorID string) common.ServiceResponse[common.Empty] {
	if err := valueobjects.ValidateAnchorID(anchorID); err != nil {
		return common.Failure[common.Empty](err.Error())
	}
	resp, err := call[common.Empty](ctx, g, http.MethodDelete, g.endpoint("/"+url.PathEscape(anchorID)), nil)
	if err != nil {
		return common.Failure[common.Empty]("Failed to call deleteAnchor endpoint.")
	}
	return resp
}

func (g *Gateway) DeleteAnchors(ctx context.Context, anchorIDs []string) common.ServiceResponse[common.Empty] {
	if anchorIDs == nil {
		return common.Failure[common.Empty]("input is null")
	}
	if len(anchorIDs) == 0 {
		return common.Success(common.Empty{})
	}
	segment, err := listSegment(anchorIDs)
	if err != nil {
		return common.Failure[common.Empty](err.Error())
	}
	resp, err := call[common.Empty](ctx, g, http.MethodDelete, g.endpoint("/list/"+segment), nil)
	if err != nil {
		return common.Failure[common.Empty]("Failed to call deleteAnchor endpoint.")
	}
	return resp
}

// GetAnchorsByNode returns the anchors attached to a node.
func (g *Gateway) GetAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[ports.AnchorMap] {
	if nodeID == "" {
		return common.Failure[ports.AnchorMap]("input is null")
	}
	resp, err := call[ports.AnchorMap](ctx, g, http.MethodGet, g.endpoint("/node/"+url.PathEscape(nodeID)), nil)
	if err != nil {
		return common.Failure[ports.AnchorMap]("Failed to call getAnchorsByNode endpoint.")
	}
	return resp
}

// DeleteAnchorsByNode removes the anchors attached to a node.
func (g *Gateway) DeleteAnchorsByNode(ctx context.Context, nodeID string) common.ServiceResponse[common.Empty] {
	if nodeID == "" {
		return common.Failure[common.Empty]("input is null")
	}
	resp, err := call[common.Empty](ctx, g, http.MethodDelete, g.endpoint("/node/"+url.PathEscape(nodeID)), nil)
	if err != nil {
		return common.Failure[common.Empty]("Failed to call deleteAnchorsByNode endpoint.")
	}
	return resp
}

func (g *Gateway) endpoint(suffix string) string {
	return g.baseURL + g.resourcePath + suffix
}

// listSegment escapes each id and joins them into one path segment.
func listSegment(anchorIDs []string) (string, error) {
	list, err := valueobjects.NewAnchorIDList(anchorIDs...)
	if err != nil {
		return "", err
	}
	escaped := make([]string, len(list))
	for i, id := range list {
		escaped[i] = url.PathEscape(id)
	}
	return strings.Join(escaped, valueobjects.IDListSeparator), nil
}

// call performs one request and decodes the envelope. Transport and
// decoding problems are returned as NETWORK errors for the caller to
// translate.
func call[T any](ctx context.Context, g *Gateway, method, endpoint string, body any) (common.ServiceResponse[T], error) {
	var zero common.ServiceResponse[T]

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Anchor request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err),
		)
		return zero, errors.NewNetworkError(method+" "+endpoint+" failed", err)
	}
	defer res.Body.Close()

	var envelope common.ServiceResponse[T]
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&envelope); err != nil {
		g.logger.Warn("Undecodable anchor response",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Int("status", res.StatusCode),
			zap.Error(err),
		)
		return zero, errors.NewNetworkError(fmt.Sprintf("unexpected response (status %d)", res.StatusCode), err)
	}
	return envelope, nil
}
