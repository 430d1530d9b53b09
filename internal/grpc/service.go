package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The title service speaks well-known protobuf types only, so peers need
// no generated code: requests carry the title id as a StringValue.
const (
	TitleInterServiceName    = "watchlist.TitleInterService"
	GetTitleInfoMethod       = "/" + TitleInterServiceName + "/GetTitleInfo"
	CheckTitleExistsMethod   = "/" + TitleInterServiceName + "/CheckTitleExists"
	titleInterServiceProtoID = "watchlist/title_service.proto"
)

// TitleInterServiceServer is implemented by Server.
type TitleInterServiceServer interface {
	GetTitleInfo(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CheckTitleExists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

var TitleInterServiceDesc = grpc.ServiceDesc{
	ServiceName: TitleInterServiceName,
	HandlerType: (*TitleInterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTitleInfo", Handler: getTitleInfoHandler},
		{MethodName: "CheckTitleExists", Handler: checkTitleExistsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: titleInterServiceProtoID,
}

func RegisterTitleInterServiceServer(s grpc.ServiceRegistrar, srv TitleInterServiceServer) {
	s.RegisterService(&TitleInterServiceDesc, srv)
}

func getTitleInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TitleInterServiceServer).GetTitleInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetTitleInfoMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TitleInterServiceServer).GetTitleInfo(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func checkTitleExistsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TitleInterServiceServer).CheckTitleExists(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckTitleExistsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TitleInterServiceServer).CheckTitleExists(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// TitleInterServiceClient is the caller side of TitleInterServiceDesc.
type TitleInterServiceClient interface {
	GetTitleInfo(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	CheckTitleExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type titleInterServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTitleInterServiceClient(cc grpc.ClientConnInterface) TitleInterServiceClient {
	return &titleInterServiceClient{cc: cc}
}

func (c *titleInterServiceClient) GetTitleInfo(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetTitleInfoMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *titleInterServiceClient) CheckTitleExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, CheckTitleExistsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
