package grpcapi

import (
	"context"
	"fmt"
	"time"

	lroauto "cloud.google.com/go/longrunning/autogen"
	longrunningpb "cloud.google.com/go/longrunning/autogen/longrunningpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
)

// Client talks to a calculator gRPC server over a plaintext connection.
type Client struct {
	conn *grpc.ClientConn
	ops  *lroauto.OperationsClient
}

// Dial connects to the server at addr (host:port).
func Dial(ctx context.Context, addr string) (*Client, error) {
	creds := grpc.WithTransportCredentials(insecure.NewCredentials())
	conn, err := grpc.NewClient(addr, creds)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	ops, err := lroauto.NewOperationsClient(ctx,
		option.WithEndpoint(addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(creds),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("operations client: %w", err)
	}
	return &Client{conn: conn, ops: ops}, nil
}

// Close releases both connections.
func (c *Client) Close() error {
	opsErr := c.ops.Close()
	if err := c.conn.Close(); err != nil {
		return err
	}
	return opsErr
}

// Evaluate evaluates one expression remotely.
func (c *Client) Evaluate(ctx context.Context, expression string) (store.BatchResult, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, evaluateMethod, wrapperspb.String(expression), out); err != nil {
		return store.BatchResult{}, err
	}
	return resultFromStruct(out), nil
}

// SetTrace switches the remote tracelog and returns its new state.
func (c *Client) SetTrace(ctx context.Context, on bool) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, setTraceMethod, wrapperspb.Bool(on), out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// StartBatch submits expressions and returns the operation name.
func (c *Client) StartBatch(ctx context.Context, expressions []string) (string, error) {
	in := &structpb.ListValue{}
	for _, e := range expressions {
		in.Values = append(in.Values, structpb.NewStringValue(e))
	}
	op := new(longrunningpb.Operation)
	if err := c.conn.Invoke(ctx, evaluateBatchMethod, in, op); err != nil {
		return "", err
	}
	return op.GetName(), nil
}

// WaitBatch polls the operation every interval until it is done and returns
// its results in submission order.
func (c *Client) WaitBatch(ctx context.Context, name string, interval time.Duration) ([]store.BatchResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		op, err := c.ops.GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: name})
		if err != nil {
			return nil, err
		}
		if op.GetDone() {
			return batchResults(op)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// EvaluateBatch submits expressions and waits for the results.
func (c *Client) EvaluateBatch(ctx context.Context, expressions []string) ([]store.BatchResult, error) {
	name, err := c.StartBatch(ctx, expressions)
	if err != nil {
		return nil, err
	}
	return c.WaitBatch(ctx, name, 20*time.Millisecond)
}

func batchResults(op *longrunningpb.Operation) ([]store.BatchResult, error) {
	if e := op.GetError(); e != nil {
		return nil, status.ErrorProto(e)
	}
	list := new(structpb.ListValue)
	if err := op.GetResponse().UnmarshalTo(list); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", op.GetName(), err)
	}
	results := make([]store.BatchResult, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		results = append(results, resultFromStruct(v.GetStructValue()))
	}
	return results, nil
}

func resultFromStruct(s *structpb.Struct) store.BatchResult {
	f := s.GetFields()
	return store.BatchResult{
		Expression: f["expression"].GetStringValue(),
		Result:     f["result"].GetStringValue(),
		Outcome:    f["outcome"].GetStringValue(),
	}
}
