package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"roomrisk/internal/app/dto"
	availabilityapp "roomrisk/internal/app/handlers/availability"
	"roomrisk/internal/app/middleware"
	"roomrisk/internal/app/queries"
	"roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

const ServiceName = "roomrisk.v1.AvailabilityEngine"

// EngineServer is the server contract of the AvailabilityEngine service.
type EngineServer interface {
	CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*dto.AvailabilityResult, error)
	FindAlternatives(ctx context.Context, req *FindAlternativesRequest) (*dto.Alternatives, error)
	DetectConflicts(ctx context.Context, req *DetectConflictsRequest) (*dto.ConflictReport, error)
}

// ServiceDesc describes AvailabilityEngine for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: unary("CheckAvailability", func(s EngineServer, ctx context.Context, req *CheckAvailabilityRequest) (any, error) {
			return s.CheckAvailability(ctx, req)
		})},
		{MethodName: "FindAlternatives", Handler: unary("FindAlternatives", func(s EngineServer, ctx context.Context, req *FindAlternativesRequest) (any, error) {
			return s.FindAlternatives(ctx, req)
		})},
		{MethodName: "DetectConflicts", Handler: unary("DetectConflicts", func(s EngineServer, ctx context.Context, req *DetectConflictsRequest) (any, error) {
			return s.DetectConflicts(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roomrisk/v1/engine",
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unary[Req any](method string, call func(EngineServer, context.Context, *Req) (any, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(EngineServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// Server answers AvailabilityEngine calls through the query bus.
type Server struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func Register(s *grpc.Server, srv EngineServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func (s *Server) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*dto.AvailabilityResult, error) {
	res, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityResult](ctx, s.Queries, availabilityapp.CheckAvailabilityQuery{
		PropertyID:           req.PropertyID,
		CheckIn:              req.CheckIn,
		CheckOut:             req.CheckOut,
		Units:                req.Units,
		ExcludeReservationID: req.ExcludeReservationID,
		IncludeAlternatives:  req.IncludeAlternatives,
		MaxAlternatives:      req.MaxAlternatives,
		SearchRadiusDays:     req.SearchRadiusDays,
	})
	if err != nil {
		return nil, s.statusError("CheckAvailability", err)
	}
	return &res, nil
}

func (s *Server) FindAlternatives(ctx context.Context, req *FindAlternativesRequest) (*dto.Alternatives, error) {
	res, err := queries.Ask[availabilityapp.FindAlternativesQuery, dto.Alternatives](ctx, s.Queries, availabilityapp.FindAlternativesQuery{
		PropertyID:           req.PropertyID,
		CheckIn:              req.CheckIn,
		CheckOut:             req.CheckOut,
		Units:                req.Units,
		ExcludeReservationID: req.ExcludeReservationID,
		MaxResults:           req.MaxResults,
		SearchRadiusDays:     req.SearchRadiusDays,
	})
	if err != nil {
		return nil, s.statusError("FindAlternatives", err)
	}
	return &res, nil
}

func (s *Server) DetectConflicts(ctx context.Context, req *DetectConflictsRequest) (*dto.ConflictReport, error) {
	res, err := queries.Ask[availabilityapp.DetectConflictsQuery, dto.ConflictReport](ctx, s.Queries, availabilityapp.DetectConflictsQuery{
		PropertyID:    req.PropertyID,
		CheckCapacity: req.CheckCapacity,
	})
	if err != nil {
		return nil, s.statusError("DetectConflicts", err)
	}
	return &res, nil
}

func (s *Server) statusError(method string, err error) error {
	code := CodeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		s.logger().Error("rpc failed", "method", method, "error", err)
	}
	return status.Error(code, err.Error())
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CodeFor maps engine errors to gRPC status codes.
func CodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, inventory.ErrPropertyNotFound):
		return codes.NotFound
	case errors.Is(err, availability.ErrInvalidRequest),
		errors.Is(err, middleware.ErrValidation),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrStayTooLong),
		errors.Is(err, reservation.ErrInvalidUnits):
		return codes.InvalidArgument
	case errors.Is(err, availability.ErrRepositoryUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

var _ EngineServer = (*Server)(nil)
