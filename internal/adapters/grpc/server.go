package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/application"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/domain"
)

// TippingInternalService is the service-to-service surface: sibling services
// resolve a profile's state without going through the public HTTP edge.
type TippingInternalService interface {
	GetProfileStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccountBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type TippingInternalServer struct {
	service *application.Service
}

func NewTippingInternalServer(service *application.Service) *TippingInternalServer {
	return &TippingInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc TippingInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "aptotip.tipping.v1.TippingInternalService",
		HandlerType: (*TippingInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetProfileStatus",
				Handler:    getProfileStatusHandler(svc),
			},
			{
				MethodName: "GetAccountBalance",
				Handler:    getAccountBalanceHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "aptotip/contracts/proto/tipping/v1/tipping_internal.proto",
	}, svc)
}

func (s *TippingInternalServer) GetProfileStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	slugVal := req.GetFields()["slug"]
	if slugVal == nil || slugVal.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing slug")
	}

	res, err := s.service.ProfileStatus(ctx, slugVal.GetStringValue())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, status.Error(codes.NotFound, "profile not found")
		case errors.Is(err, domain.ErrNetworkUnavailable):
			return nil, status.Error(codes.Unavailable, "blockchain network unavailable")
		default:
			return nil, status.Errorf(codes.Internal, "profile status: %v", err)
		}
	}

	profile := res.Profile
	resp, err := structpb.NewStruct(map[string]any{
		"profile_id":     profile.ProfileID.String(),
		"slug":           profile.Slug,
		"wallet_address": profile.WalletAddress,
		"category":       profile.Category,
		"verified":       profile.Verified,
		"total_tips":     profile.TotalTips,
		"tip_count":      profile.TipCount,
		"on_chain":       res.OnChain,
		"balance_octas":  res.BalanceOctas,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *TippingInternalServer) GetAccountBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	addressVal := req.GetFields()["address"]
	if addressVal == nil || addressVal.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing address")
	}

	balance, err := s.service.GetBalance(ctx, addressVal.GetStringValue())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return nil, status.Error(codes.InvalidArgument, "invalid address")
		case errors.Is(err, domain.ErrNetworkUnavailable):
			return nil, status.Error(codes.Unavailable, "blockchain network unavailable")
		default:
			return nil, status.Errorf(codes.Internal, "get balance: %v", err)
		}
	}

	resp, err := structpb.NewStruct(map[string]any{
		"address":       balance.Address,
		"balance_octas": balance.BalanceOctas,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func getProfileStatusHandler(svc TippingInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetProfileStatus(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/aptotip.tipping.v1.TippingInternalService/GetProfileStatus",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetProfileStatus(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getAccountBalanceHandler(svc TippingInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetAccountBalance(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/aptotip.tipping.v1.TippingInternalService/GetAccountBalance",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetAccountBalance(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
