package townrecord

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified town record service name. It is also
// the name reported by the service's health check.
const ServiceName = "covey.townrecord.v1.TownRecordService"

// Full method names of the town record service.
const (
	ListTownsMethod  = "/" + ServiceName + "/ListTowns"
	CreateTownMethod = "/" + ServiceName + "/CreateTown"
	UpdateTownMethod = "/" + ServiceName + "/UpdateTown"
	DeleteTownMethod = "/" + ServiceName + "/DeleteTown"
	JoinTownMethod   = "/" + ServiceName + "/JoinTown"
)

// TownInfo is one listed town on the wire.
type TownInfo struct {
	CoveyTownID      string `json:"coveyTownID"`
	FriendlyName     string `json:"friendlyName"`
	CurrentOccupancy int    `json:"currentOccupancy"`
	MaximumOccupancy int    `json:"maximumOccupancy"`
	IsPubliclyListed bool   `json:"isPubliclyListed"`
}

// ListTownsRequest lists publicly listed towns.
type ListTownsRequest struct{}

// ListTownsResponse carries the listed towns in service order.
type ListTownsResponse struct {
	Towns []TownInfo `json:"towns"`
}

// CreateTownRequest creates a town.
type CreateTownRequest struct {
	FriendlyName     string `json:"friendlyName"`
	IsPubliclyListed bool   `json:"isPubliclyListed"`
}

// CreateTownResponse returns the new town's identifier and update password.
type CreateTownResponse struct {
	CoveyTownID       string `json:"coveyTownID"`
	CoveyTownPassword string `json:"coveyTownPassword"`
}

// UpdateTownRequest changes a town's name and listing flag.
type UpdateTownRequest struct {
	CoveyTownID       string `json:"coveyTownID"`
	CoveyTownPassword string `json:"coveyTownPassword"`
	FriendlyName      string `json:"friendlyName,omitempty"`
	IsPubliclyListed  bool   `json:"isPubliclyListed"`
}

// DeleteTownRequest deletes a town.
type DeleteTownRequest struct {
	CoveyTownID       string `json:"coveyTownID"`
	CoveyTownPassword string `json:"coveyTownPassword"`
}

// JoinTownRequest asks for session bootstrap data for one user in one town.
type JoinTownRequest struct {
	UserName    string `json:"userName"`
	CoveyTownID string `json:"coveyTownID"`
}

// JoinTownResponse carries the session bootstrap data.
type JoinTownResponse struct {
	CoveyUserID        string `json:"coveyUserID"`
	CoveySessionToken  string `json:"coveySessionToken"`
	ProviderVideoToken string `json:"providerVideoToken"`
	FriendlyName       string `json:"friendlyName"`
	IsPubliclyListed   bool   `json:"isPubliclyListed"`
}

// Empty is the response of operations without a payload.
type Empty struct{}

// TownRecordServiceServer is the server API of the town record service.
type TownRecordServiceServer interface {
	ListTowns(context.Context, *ListTownsRequest) (*ListTownsResponse, error)
	CreateTown(context.Context, *CreateTownRequest) (*CreateTownResponse, error)
	UpdateTown(context.Context, *UpdateTownRequest) (*Empty, error)
	DeleteTown(context.Context, *DeleteTownRequest) (*Empty, error)
	JoinTown(context.Context, *JoinTownRequest) (*JoinTownResponse, error)
}

// UnimplementedTownRecordServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedTownRecordServiceServer struct{}

func (UnimplementedTownRecordServiceServer) ListTowns(context.Context, *ListTownsRequest) (*ListTownsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTowns not implemented")
}

func (UnimplementedTownRecordServiceServer) CreateTown(context.Context, *CreateTownRequest) (*CreateTownResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateTown not implemented")
}

func (UnimplementedTownRecordServiceServer) UpdateTown(context.Context, *UpdateTownRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateTown not implemented")
}

func (UnimplementedTownRecordServiceServer) DeleteTown(context.Context, *DeleteTownRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteTown not implemented")
}

func (UnimplementedTownRecordServiceServer) JoinTown(context.Context, *JoinTownRequest) (*JoinTownResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method JoinTown not implemented")
}

// RegisterTownRecordServiceServer registers srv on s.
func RegisterTownRecordServiceServer(s grpc.ServiceRegistrar, srv TownRecordServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unaryHandler builds a grpc.MethodDesc handler for one request type.
func unaryHandler[Req any](fullMethod string, call func(TownRecordServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(TownRecordServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TownRecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListTowns",
			Handler: unaryHandler(ListTownsMethod, func(s TownRecordServiceServer, ctx context.Context, in *ListTownsRequest) (any, error) {
				return s.ListTowns(ctx, in)
			}),
		},
		{
			MethodName: "CreateTown",
			Handler: unaryHandler(CreateTownMethod, func(s TownRecordServiceServer, ctx context.Context, in *CreateTownRequest) (any, error) {
				return s.CreateTown(ctx, in)
			}),
		},
		{
			MethodName: "UpdateTown",
			Handler: unaryHandler(UpdateTownMethod, func(s TownRecordServiceServer, ctx context.Context, in *UpdateTownRequest) (any, error) {
				return s.UpdateTown(ctx, in)
			}),
		},
		{
			MethodName: "DeleteTown",
			Handler: unaryHandler(DeleteTownMethod, func(s TownRecordServiceServer, ctx context.Context, in *DeleteTownRequest) (any, error) {
				return s.DeleteTown(ctx, in)
			}),
		},
		{
			MethodName: "JoinTown",
			Handler: unaryHandler(JoinTownMethod, func(s TownRecordServiceServer, ctx context.Context, in *JoinTownRequest) (any, error) {
				return s.JoinTown(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "townrecord/v1/townrecord.json",
}
