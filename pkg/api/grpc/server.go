// Package grpcapi implements the calculator gRPC services. Requests and
// responses use protobuf well-known types, so clients need no generated code;
// batch evaluations are exposed as google.longrunning operations.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	longrunningpb "cloud.google.com/go/longrunning/autogen/longrunningpb"

	"github.com/lemonberrylabs/five-function-calculator/pkg/calc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// maxBatch bounds the number of expressions in one batch operation.
const maxBatch = 1000

// Tracelog is the part of trace.Tracelog the service controls.
type Tracelog interface {
	trace.Sink
	Enable()
	Disable()
}

// Server implements the Calculator and Operations gRPC services.
type Server struct {
	longrunningpb.UnimplementedOperationsServer

	calc  *calc.Calculator
	trace Tracelog
	store *store.Store
	log   zerolog.Logger
	grpc  *grpc.Server

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// New creates a new gRPC server evaluating with tl as trace sink and keeping
// batch operations in s.
func New(tl Tracelog, s *store.Store, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		calc:   calc.New(tl),
		trace:  tl,
		store:  s,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logCalls))
	RegisterCalculatorServer(gs, srv)
	longrunningpb.RegisterOperationsServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop stops the gRPC server, then cancels and waits for running
// batches.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
	s.cancel()
	s.workers.Wait()
}

func (s *Server) logCalls(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("latency", time.Since(start)).
		Msg("rpc")
	return resp, err
}

// --- Calculator Service ---

// Evaluate runs one expression. The response struct carries the fields
// expression, result and outcome.
func (s *Server) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "expression is required")
	}
	return resultStruct(s.evaluate(req.GetValue()))
}

// SetTrace switches the tracelog and returns the new state.
func (s *Server) SetTrace(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}
	if req.GetValue() {
		s.trace.Enable()
	} else {
		s.trace.Disable()
	}
	s.log.Info().Bool("enabled", req.GetValue()).Msg("trace switched")
	return wrapperspb.Bool(s.trace.Enabled()), nil
}

// EvaluateBatch starts evaluating a list of string expressions in the
// background and returns the operation tracking it.
func (s *Server) EvaluateBatch(ctx context.Context, req *structpb.ListValue) (*longrunningpb.Operation, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "expressions are required")
	}
	values := req.GetValues()
	if len(values) > maxBatch {
		return nil, status.Errorf(codes.InvalidArgument, "at most %d expressions per batch, got %d", maxBatch, len(values))
	}
	exprs := make([]string, len(values))
	for i, v := range values {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "expression %d is not a string", i)
		}
		exprs[i] = sv.StringValue
	}

	b := s.store.CreateBatch(exprs)
	if !b.Done() {
		s.workers.Add(1)
		go s.runBatch(b.Name, exprs)
	}
	return batchToOperation(b)
}

func (s *Server) runBatch(name string, exprs []string) {
	defer s.workers.Done()
	for _, expr := range exprs {
		if s.ctx.Err() != nil {
			if err := s.store.CancelBatch(name); err != nil {
				s.log.Warn().Err(err).Str("operation", name).Msg("cancelling batch on shutdown")
			}
			return
		}
		r := s.evaluate(expr)
		if err := s.store.AppendBatchResult(name, r); err != nil {
			s.log.Debug().Err(err).Str("operation", name).Msg("batch stopped")
			return
		}
	}
	s.log.Info().Str("operation", name).Int("expressions", len(exprs)).Msg("batch complete")
}

func (s *Server) evaluate(expression string) store.BatchResult {
	result := s.calc.Calculate(expression)
	return store.BatchResult{
		Expression: expression,
		Result:     result,
		Outcome:    string(calc.Classify(result)),
	}
}

// --- Operations Service ---

func (s *Server) GetOperation(ctx context.Context, req *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	b, err := s.store.GetBatch(req.GetName())
	if err != nil {
		return nil, storeStatus(err)
	}
	return batchToOperation(b)
}

func (s *Server) ListOperations(ctx context.Context, req *longrunningpb.ListOperationsRequest) (*longrunningpb.ListOperationsResponse, error) {
	batches := s.store.ListBatches()
	resp := &longrunningpb.ListOperationsResponse{}
	for _, b := range batches {
		op, err := batchToOperation(b)
		if err != nil {
			return nil, err
		}
		resp.Operations = append(resp.Operations, op)
	}
	return resp, nil
}

func (s *Server) DeleteOperation(ctx context.Context, req *longrunningpb.DeleteOperationRequest) (*emptypb.Empty, error) {
	if err := s.store.DeleteBatch(req.GetName()); err != nil {
		return nil, storeStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) CancelOperation(ctx context.Context, req *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	if err := s.store.CancelBatch(req.GetName()); err != nil {
		return nil, storeStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) WaitOperation(ctx context.Context, req *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	timeout := time.Minute
	if d := req.GetTimeout(); d != nil {
		timeout = d.AsDuration()
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		b, err := s.store.GetBatch(req.GetName())
		if err != nil {
			return nil, storeStatus(err)
		}
		if b.Done() || !time.Now().Before(deadline) {
			return batchToOperation(b)
		}
		select {
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		case <-ticker.C:
		}
	}
}

func storeStatus(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.FailedPrecondition, err.Error())
}

func resultStruct(r store.BatchResult) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]interface{}{
		"expression": r.Expression,
		"result":     r.Result,
		"outcome":    r.Outcome,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func batchToOperation(b *store.Batch) (*longrunningpb.Operation, error) {
	meta, err := anypb.New(&structpb.Struct{Fields: map[string]*structpb.Value{
		"state":      structpb.NewStringValue(string(b.State)),
		"total":      structpb.NewNumberValue(float64(len(b.Expressions))),
		"completed":  structpb.NewNumberValue(float64(len(b.Results))),
		"createTime": structpb.NewStringValue(b.CreateTime.UTC().Format(time.RFC3339Nano)),
	}})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	op := &longrunningpb.Operation{
		Name:     b.Name,
		Metadata: meta,
		Done:     b.Done(),
	}
	switch b.State {
	case store.BatchSucceeded:
		list := &structpb.ListValue{}
		for _, r := range b.Results {
			st, err := resultStruct(r)
			if err != nil {
				return nil, err
			}
			list.Values = append(list.Values, structpb.NewStructValue(st))
		}
		resp, err := anypb.New(list)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		op.Result = &longrunningpb.Operation_Response{Response: resp}
	case store.BatchCancelled:
		op.Result = &longrunningpb.Operation_Error{
			Error: status.New(codes.Canceled, "batch cancelled").Proto(),
		}
	}
	return op, nil
}
