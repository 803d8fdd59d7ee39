package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "formkeeper.v1.FormService"

// Method names.
const (
	MethodNormalize  = "Normalize"
	MethodPreview    = "Preview"
	MethodSaveForm   = "SaveForm"
	MethodGetForm    = "GetForm"
	MethodListForms  = "ListForms"
	MethodDeleteForm = "DeleteForm"
)

// FormServer is the server API for the form service. Requests and responses
// are google.protobuf.Struct documents; the members of each are listed on the
// FormService methods.
type FormServer interface {
	Normalize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Preview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveForm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetForm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListForms(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteForm(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(FormServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FormServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FormServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the form service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FormServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodNormalize, Handler: unaryHandler(MethodNormalize, FormServer.Normalize)},
		{MethodName: MethodPreview, Handler: unaryHandler(MethodPreview, FormServer.Preview)},
		{MethodName: MethodSaveForm, Handler: unaryHandler(MethodSaveForm, FormServer.SaveForm)},
		{MethodName: MethodGetForm, Handler: unaryHandler(MethodGetForm, FormServer.GetForm)},
		{MethodName: MethodListForms, Handler: unaryHandler(MethodListForms, FormServer.ListForms)},
		{MethodName: MethodDeleteForm, Handler: unaryHandler(MethodDeleteForm, FormServer.DeleteForm)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "formkeeper/v1/form_service.proto",
}

// RegisterFormServer registers srv with a gRPC server.
func RegisterFormServer(s grpc.ServiceRegistrar, srv FormServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FormClient calls the form service over a client connection.
type FormClient struct {
	cc grpc.ClientConnInterface
}

// NewFormClient wraps a connection.
func NewFormClient(cc grpc.ClientConnInterface) *FormClient {
	return &FormClient{cc: cc}
}

// Call invokes method with in and returns the response document.
func (c *FormClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
