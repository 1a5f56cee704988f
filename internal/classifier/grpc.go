package classifier

import (
	"context"

	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ClassifyMethod is the full gRPC method name of the classifier service.
const ClassifyMethod = "/netids.v1.Classifier/Classify"

// ClassifierServer is the server API of the classifier service.
type ClassifierServer interface {
	Classify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "netids.v1.Classifier",
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: classifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netids/v1/classifier.proto",
}

func classifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ClassifyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).Classify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Service serves a Model over gRPC.
type Service struct {
	model Model
}

// NewService creates a Service around m.
func NewService(m Model) *Service {
	return &Service{model: m}
}

// RegisterService registers a Service for m on s.
func RegisterService(s grpc.ServiceRegistrar, m Model) {
	s.RegisterService(&serviceDesc, NewService(m))
}

func (s *Service) Classify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	vectors, err := DecodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	labels, err := s.model.Predict(ctx, vectors)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if len(labels) != len(vectors) {
		return nil, status.Errorf(codes.Internal, "model returned %d labels for %d flows", len(labels), len(vectors))
	}
	preds := make([]model.Prediction, len(vectors))
	for i, fv := range vectors {
		preds[i] = model.Prediction{FlowID: fv.FlowID, Label: labels[i]}
	}
	logger.WithComponent("classifier").Debugf("Classified %d flows", len(preds))
	return EncodeResponse(preds)
}

// Client classifies the feature store through a remote classifier service.
type Client struct {
	conn  grpc.ClientConnInterface
	store Store
}

// NewClient creates a Client over an established connection.
func NewClient(conn grpc.ClientConnInterface, store Store) *Client {
	return &Client{conn: conn, store: store}
}

// Dial connects to the classifier service at addr.
func Dial(addr string, store Store) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "connect to classifier at %s", addr)
	}
	return NewClient(conn, store), conn, nil
}

func (c *Client) Classify(ctx context.Context) error {
	vectors, err := c.store.Features(ctx)
	if err != nil {
		return errors.Wrap(err, "read features")
	}
	if len(vectors) == 0 {
		return nil
	}
	req, err := EncodeRequest(vectors)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ClassifyMethod, req, resp); err != nil {
		return errors.Wrap(err, "classifier call")
	}
	preds, err := DecodeResponse(resp)
	if err != nil {
		return errors.Wrap(err, "decode response")
	}
	return upsert(ctx, c.store, preds)
}
