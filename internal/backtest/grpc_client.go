package backtest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anjaninandan001/algo-tinker/internal/results"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "backtest.BacktestService"
	runMethod   = "/" + serviceName + "/Run"
)

// GRPCClient sends backtest requests to the service over gRPC. Requests and
// responses travel as google.protobuf.Struct so no generated stubs are needed.
type GRPCClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return newGRPCClient(conn), nil
}

func newGRPCClient(conn *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{conn: conn, health: healthpb.NewHealthClient(conn)}
}

func (g *GRPCClient) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

// Run invokes BacktestService/Run.
func (g *GRPCClient) Run(ctx context.Context, req Request) (*results.Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, runMethod, in, out); err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.Unavailable {
			return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, st.Message())
		}
		return nil, err
	}

	data, err := json.Marshal(out.AsMap())
	if err != nil {
		return nil, err
	}
	var resp results.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode backtest response: %w", err)
	}
	return &resp, nil
}

// Ping runs the standard gRPC health check against the backtest service.
func (g *GRPCClient) Ping(ctx context.Context) error {
	res, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, res.GetStatus())
	}
	return nil
}

// toStruct goes through JSON so the struct tags decide the field names.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
