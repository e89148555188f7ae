// Package grpc implements relay's gossip transport over gRPC. Each bucket store
// gets its own service, relay.v1.<name>.BucketGossip, with a single unary
// Gossip method carrying the binary encoded bucket.Message in a BytesValue.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/transport"
	"github.com/cockroachdb/errors"
	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Config struct {
	// Metrics enables the gRPC Prometheus interceptors. Server metrics are
	// registered with the default Prometheus registry.
	Metrics bool
	Logger  *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func DefaultConfig() Config { return Config{Logger: zap.NewNop()} }

// Transport serves and sends gossip for any number of bucket stores.
type Transport struct {
	Config
	pool     *pool
	mu       sync.Mutex
	services map[string]*gossip
	server   *grpc.Server
}

func New(cfg Config) *Transport {
	cfg = cfg.Merge(DefaultConfig())
	opts := []grpc.DialOption{grpc.WithInsecure()}
	if cfg.Metrics {
		opts = append(opts, grpc.WithUnaryInterceptor(grpcprometheus.UnaryClientInterceptor))
	}
	return &Transport{Config: cfg, pool: newPool(opts...), services: make(map[string]*gossip)}
}

func (t *Transport) String() string { return "grpc" }

// Gossip returns the transport for the store with the given name. Must be
// called before Configure.
func (t *Transport) Gossip(name string) bucket.Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok := t.services[name]; ok {
		return g
	}
	g := &gossip{pool: t.pool, method: "/" + serviceName(name) + "/Gossip", name: name}
	t.services[name] = g
	return g
}

// Configure starts serving gossip on addr. The server stops when ctx is
// cancelled or Close is called.
func (t *Transport) Configure(ctx context.Context, addr address.Address) error {
	var opts []grpc.ServerOption
	if t.Metrics {
		opts = append(opts, grpc.UnaryInterceptor(grpcprometheus.UnaryServerInterceptor))
	}
	server := grpc.NewServer(opts...)
	t.mu.Lock()
	for name, g := range t.services {
		desc := serviceDesc(name)
		server.RegisterService(&desc, g)
	}
	t.server = server
	t.mu.Unlock()
	if t.Metrics {
		grpcprometheus.Register(server)
	}
	lis, err := net.Listen("tcp", addr.PortString())
	if err != nil {
		return errors.Wrapf(err, "[grpc] - failed to listen on %s", addr)
	}
	go func() {
		if err := server.Serve(lis); err != nil {
			t.Logger.Error("gossip server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		server.Stop()
	}()
	t.Logger.Debug("serving gossip", zap.Stringer("addr", addr))
	return nil
}

// Close stops the server and closes every client connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.server != nil {
		t.server.Stop()
	}
	t.mu.Unlock()
	return t.pool.close()
}

func serviceName(name string) string { return "relay.v1." + name + ".BucketGossip" }

// gossipServer is the handler type of the gossip service.
type gossipServer interface {
	serve(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func serviceDesc(name string) grpc.ServiceDesc {
	method := "/" + serviceName(name) + "/Gossip"
	return grpc.ServiceDesc{
		ServiceName: serviceName(name),
		HandlerType: (*gossipServer)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Gossip",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(wrapperspb.BytesValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(gossipServer).serve(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(gossipServer).serve(ctx, req.(*wrapperspb.BytesValue))
				}
				return interceptor(ctx, in, info, handler)
			},
		}},
		Metadata: "relay/v1/gossip",
	}
}

// |||||| GOSSIP ||||||

// gossip implements bucket.Transport.
type gossip struct {
	pool    *pool
	name    string
	method  string
	mu      sync.RWMutex
	handler func(context.Context, bucket.Message) (bucket.Message, error)
}

var _ transport.Unary[bucket.Message, bucket.Message] = (*gossip)(nil)

func (g *gossip) String() string { return "grpc" }

func (g *gossip) Handle(handler func(context.Context, bucket.Message) (bucket.Message, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = handler
}

func (g *gossip) Send(ctx context.Context, addr address.Address, req bucket.Message) (bucket.Message, error) {
	conn, err := g.pool.acquire(addr)
	if err != nil {
		return bucket.Message{}, err
	}
	tReq, err := translateBackward(req)
	if err != nil {
		return bucket.Message{}, err
	}
	tRes := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, g.method, tReq, tRes); err != nil {
		if status.Code(err) == codes.Unavailable {
			err = errors.Mark(err, transport.ErrUnreachable)
		}
		return bucket.Message{}, err
	}
	return translateForward(tRes)
}

func (g *gossip) serve(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	g.mu.RLock()
	handler := g.handler
	g.mu.RUnlock()
	if handler == nil {
		return nil, status.Errorf(codes.Unavailable, "no handler for %s gossip", g.name)
	}
	msg, err := translateForward(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := handler(ctx, msg)
	if err != nil {
		if errors.Is(err, bucket.ErrStopped) || errors.Is(err, bucket.ErrNotStarted) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return translateBackward(res)
}

func translateForward(msg *wrapperspb.BytesValue) (tMsg bucket.Message, err error) {
	if msg == nil || len(msg.Value) == 0 {
		return tMsg, nil
	}
	err = tMsg.UnmarshalBinary(msg.Value)
	return tMsg, err
}

func translateBackward(msg bucket.Message) (*wrapperspb.BytesValue, error) {
	b, err := msg.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(b), nil
}
