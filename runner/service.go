package runner

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

const ServiceName = "polaris.runner.SessionService"

// The runner messages are plain Go structs, so they travel as JSON. Clients
// select the codec with the "json" content subtype.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func unaryHandler[Req, Resp any](method string, call func(SessionService, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SessionService), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateDataset", Handler: unaryHandler("CreateDataset", SessionService.CreateDataset)},
		{MethodName: "ListDatasets", Handler: unaryHandler("ListDatasets", SessionService.ListDatasets)},
		{MethodName: "CreateSession", Handler: unaryHandler("CreateSession", SessionService.CreateSession)},
		{MethodName: "CloseSession", Handler: unaryHandler("CloseSession", SessionService.CloseSession)},
		{MethodName: "ListSessions", Handler: unaryHandler("ListSessions", SessionService.ListSessions)},
		{MethodName: "SetViewport", Handler: unaryHandler("SetViewport", SessionService.SetViewport)},
		{MethodName: "GetAnnotations", Handler: unaryHandler("GetAnnotations", SessionService.GetAnnotations)},
		{MethodName: "GetSummary", Handler: unaryHandler("GetSummary", SessionService.GetSummary)},
		{MethodName: "Gesture", Handler: unaryHandler("Gesture", SessionService.Gesture)},
		{MethodName: "Select", Handler: unaryHandler("Select", SessionService.Select)},
		{MethodName: "ClickCallout", Handler: unaryHandler("ClickCallout", SessionService.ClickCallout)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "runner/service.go",
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionService) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// Dial connects to a runner.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	return grpc.NewClient(addr, opts...)
}

// Client calls a remote runner. The connection must use the json content
// subtype, as Dial does.
type Client struct {
	cc grpc.ClientConnInterface
}

var _ SessionService = (*Client)(nil)

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDataset(ctx context.Context, req *CreateDatasetRequest) (*DatasetResponse, error) {
	return invoke[DatasetResponse](ctx, c.cc, "CreateDataset", req)
}

func (c *Client) ListDatasets(ctx context.Context, req *ListDatasetsRequest) (*ListDatasetsResponse, error) {
	return invoke[ListDatasetsResponse](ctx, c.cc, "ListDatasets", req)
}

func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "CreateSession", req)
}

func (c *Client) CloseSession(ctx context.Context, req *SessionRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "CloseSession", req)
}

func (c *Client) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c.cc, "ListSessions", req)
}

func (c *Client) SetViewport(ctx context.Context, req *SetViewportRequest) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "SetViewport", req)
}

func (c *Client) GetAnnotations(ctx context.Context, req *AnnotationsRequest) (*AnnotationsResponse, error) {
	return invoke[AnnotationsResponse](ctx, c.cc, "GetAnnotations", req)
}

func (c *Client) GetSummary(ctx context.Context, req *SessionRequest) (*SummaryResponse, error) {
	return invoke[SummaryResponse](ctx, c.cc, "GetSummary", req)
}

func (c *Client) Gesture(ctx context.Context, req *GestureRequest) (*GestureResponse, error) {
	return invoke[GestureResponse](ctx, c.cc, "Gesture", req)
}

func (c *Client) Select(ctx context.Context, req *SelectRequest) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, "Select", req)
}

func (c *Client) ClickCallout(ctx context.Context, req *SessionRequest) (*ClickResponse, error) {
	return invoke[ClickResponse](ctx, c.cc, "ClickCallout", req)
}
