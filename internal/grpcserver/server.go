// Package grpcserver implements the VerificationService gRPC server.
//
// It delegates all business logic to verification.Service and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and conversion between domain types and google.protobuf.Struct messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"securyflex/verification-service/internal/certificate"
	"securyflex/verification-service/internal/verification"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "securyflex.verification.v1.VerificationService"

// VerificationServer is the server API of the VerificationService.
type VerificationServer interface {
	ListCertificateValidity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEligibility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyLocation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements VerificationServer.
type Server struct {
	svc *verification.Service
}

// NewServer constructs a gRPC Server backed by the given verification.Service.
func NewServer(svc *verification.Service) *Server {
	return &Server{svc: svc}
}

// Register mounts srv on s.
func Register(s grpc.ServiceRegistrar, srv VerificationServer) {
	s.RegisterService(&serviceDesc, srv)
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// ListCertificateValidity returns the validity of every certificate of the caller.
func (s *Server) ListCertificateValidity(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.svc.CertificateValidity(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"assessments": out})
}

// CheckEligibility evaluates the caller against the requirements of a job.
func (s *Server) CheckEligibility(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	jobID, err := requiredString(req, "jobId")
	if err != nil {
		return nil, err
	}

	report, err := s.svc.CheckEligibility(ctx, userID, jobID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(report)
}

// VerifyLocation classifies a check-in sample of the caller at a job site.
func (s *Server) VerifyLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	jobID, err := requiredString(req, "jobId")
	if err != nil {
		return nil, err
	}
	sample, err := sampleFromStruct(req)
	if err != nil {
		return nil, err
	}

	decision, err := s.svc.VerifyLocation(ctx, userID, jobID, sample)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(decision)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	if errors.Is(err, verification.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	var ve *verification.ValidationError
	if errors.As(err, &ve) {
		return status.Error(codes.InvalidArgument, ve.Msg)
	}
	var ire *certificate.InvalidRangeError
	if errors.As(err, &ire) {
		return status.Error(codes.FailedPrecondition, ire.Error())
	}
	return status.Error(codes.Internal, "internal server error")
}

func requiredString(req *structpb.Struct, field string) (string, error) {
	v := req.GetFields()[field].GetStringValue()
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return v, nil
}

// numberField returns nil for an absent or null field and rejects any
// non-number kind.
func numberField(req *structpb.Struct, field string) (*float64, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		return &n, nil
	}
	return nil, status.Errorf(codes.InvalidArgument, "%s must be a number", field)
}

func sampleFromStruct(req *structpb.Struct) (verification.Sample, error) {
	fields := req.GetFields()
	sample := verification.Sample{
		IsMock:   fields["isMock"].GetBoolValue(),
		Disabled: fields["disabled"].GetBoolValue(),
	}

	var err error
	for name, dst := range map[string]**float64{
		"accuracyMeters": &sample.AccuracyMeters,
		"distanceMeters": &sample.DistanceMeters,
		"latitude":       &sample.Latitude,
		"longitude":      &sample.Longitude,
	} {
		if *dst, err = numberField(req, name); err != nil {
			return sample, err
		}
	}
	if sample.AccuracyMeters == nil && !sample.Disabled {
		return sample, status.Error(codes.InvalidArgument, "accuracyMeters is required")
	}

	if ts := fields["timestamp"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return sample, status.Errorf(codes.InvalidArgument, "timestamp: %v", err)
		}
		sample.Timestamp = t
	}
	return sample, nil
}

// toStruct converts a JSON-tagged domain value into a Struct message.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
