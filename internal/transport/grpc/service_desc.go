package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const BookingServiceName = "barbershop.v1.BookingService"

// BookingServiceServer is the server API for barbershop.v1.BookingService.
// Requests and responses are google.protobuf.Struct documents carrying the
// same field names as the JSON API.
type BookingServiceServer interface {
	GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BookAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SearchAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ BookingServiceServer = (*BookingServer)(nil)

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailability", Handler: unaryHandler("GetAvailability", BookingServiceServer.GetAvailability)},
		{MethodName: "BookAppointment", Handler: unaryHandler("BookAppointment", BookingServiceServer.BookAppointment)},
		{MethodName: "UpdateAppointmentStatus", Handler: unaryHandler("UpdateAppointmentStatus", BookingServiceServer.UpdateAppointmentStatus)},
		{MethodName: "SearchAppointments", Handler: unaryHandler("SearchAppointments", BookingServiceServer.SearchAppointments)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "barbershop/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

type structMethod func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	fullMethod := "/" + BookingServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BookingServiceClient calls barbershop.v1.BookingService.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func (c *BookingServiceClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+BookingServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) GetAvailability(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetAvailability", req, opts...)
}

func (c *BookingServiceClient) BookAppointment(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "BookAppointment", req, opts...)
}

func (c *BookingServiceClient) UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "UpdateAppointmentStatus", req, opts...)
}

func (c *BookingServiceClient) SearchAppointments(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SearchAppointments", req, opts...)
}
