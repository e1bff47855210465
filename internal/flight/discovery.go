// Package flight hooks the credential subsystem into the gRPC transport used
// for Arrow Flight calls: response-header interception for OAuth endpoint
// discovery, and per-RPC bearer credentials backed by a token provider.
package flight

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	// OAuthURLHeader is the response header carrying the server-advertised
	// OAuth base URL.
	OAuthURLHeader = "x-gizmosql-oauth-url"

	// DiscoveryUsername is the sentinel handshake username that asks the
	// server to advertise its OAuth endpoint.
	DiscoveryUsername = "__discover__"
)

// DiscoveryInterceptor captures the server-advertised OAuth base URL from
// response headers. The server sends the header when the client performs a
// handshake with DiscoveryUsername; the interceptor itself watches every
// call and records the last non-empty value it sees. One instance belongs to
// one Flight client connection.
type DiscoveryInterceptor struct {
	oauthURL atomic.Value // string
}

// NewDiscoveryInterceptor creates an interceptor with no discovered URL.
func NewDiscoveryInterceptor() *DiscoveryInterceptor {
	return &DiscoveryInterceptor{}
}

// DiscoveredOAuthURL returns the OAuth base URL advertised by the server, or
// the empty string if no discovery handshake has happened yet.
func (d *DiscoveryInterceptor) DiscoveredOAuthURL() string {
	url, _ := d.oauthURL.Load().(string)
	return url
}

func (d *DiscoveryInterceptor) capture(md metadata.MD) {
	values := md.Get(OAuthURLHeader)
	if len(values) == 0 || values[0] == "" {
		return
	}
	d.oauthURL.Store(values[0])
	log.Debugf("Discovered OAuth URL from server: %s", values[0])
}

// UnaryClientInterceptor returns a gRPC interceptor that inspects response
// headers on unary calls. It is inert beyond the header read.
func (d *DiscoveryInterceptor) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var header metadata.MD
		opts = append(opts, grpc.Header(&header))
		err := invoker(ctx, method, req, reply, cc, opts...)
		d.capture(header)
		return err
	}
}

// StreamClientInterceptor returns a gRPC interceptor that inspects response
// headers on streaming calls. The Flight handshake is a streaming RPC, so
// this is the path discovery actually takes.
func (d *DiscoveryInterceptor) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		stream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			return nil, err
		}
		return &discoveryStream{ClientStream: stream, interceptor: d}, nil
	}
}

// discoveryStream reads the header metadata once the first message arrives.
type discoveryStream struct {
	grpc.ClientStream
	interceptor *DiscoveryInterceptor
	headerOnce  sync.Once
}

func (s *discoveryStream) RecvMsg(m any) error {
	err := s.ClientStream.RecvMsg(m)
	s.headerOnce.Do(func() {
		if md, headerErr := s.ClientStream.Header(); headerErr == nil {
			s.interceptor.capture(md)
		}
	})
	return err
}
