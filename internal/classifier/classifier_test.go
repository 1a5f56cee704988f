package classifier

import (
	"context"
	"net"
	"testing"

	"Go2NetIDS/internal/model"
	"Go2NetIDS/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var sample = []model.FeatureVector{
	{FlowID: "(10.0.0.1, 10.0.0.2, 1000, 80, TCP)", Duration: 1, BytesPerSecond: 250, ForwardHeaderBytes: 20, BackwardHeaderBytes: 20, PacketLengthStdDev: 35.36, PacketLengthMean: 125},
	{FlowID: "(10.0.0.1, 10.0.0.9, 53, 40000, UDP)", Duration: 0.5, BytesPerSecond: 5e6, ForwardHeaderBytes: 16, BackwardHeaderBytes: 16, PacketLengthStdDev: 0, PacketLengthMean: 512},
}

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	cycle, err := mem.BeginCycle(context.Background())
	require.NoError(t, err)
	require.NoError(t, cycle.ReplaceFeatures(context.Background(), sample))
	require.NoError(t, cycle.Commit())
	return mem
}

func TestThresholdModel(t *testing.T) {
	m := &ThresholdModel{MaxBytesPerSecond: 1e6, MaxHeaderBytes: 100}
	labels, err := m.Predict(context.Background(), []model.FeatureVector{
		{BytesPerSecond: 10, ForwardHeaderBytes: 20},
		{BytesPerSecond: 2e6},
		{ForwardHeaderBytes: 60, BackwardHeaderBytes: 60},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, labels)

	labels, err = (&ThresholdModel{}).Predict(context.Background(), []model.FeatureVector{{BytesPerSecond: 1e12}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, labels)
}

func TestLocal_Classify(t *testing.T) {
	mem := seededStore(t)
	local := NewLocal(mem, &ThresholdModel{MaxBytesPerSecond: 1e6})
	require.NoError(t, local.Classify(context.Background()))

	preds, err := mem.Predictions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Prediction{
		{FlowID: sample[1].FlowID, Label: 1},
		{FlowID: sample[0].FlowID, Label: 0},
	}, preds)
}

func TestLocal_NoFeatures(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, NewLocal(mem, &ThresholdModel{}).Classify(context.Background()))
	preds, err := mem.Predictions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestRequestWireFormat(t *testing.T) {
	req, err := EncodeRequest(sample)
	require.NoError(t, err)
	assert.Len(t, req.GetFields()["columns"].GetListValue().GetValues(), len(Columns))

	got, err := DecodeRequest(req)
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	_, err = DecodeRequest(&structpb.Struct{})
	assert.Error(t, err)
}

func TestDecodeResponse_RejectsNonNumericLabels(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]interface{}{
		"labels": map[string]interface{}{"(A, B, 1, 2, TCP)": "attack"},
	})
	require.NoError(t, err)
	_, err = DecodeResponse(resp)
	assert.Error(t, err)
}

func dialBufconn(t *testing.T, m Model) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterService(srv, m)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestClient_ClassifyOverGRPC(t *testing.T) {
	mem := seededStore(t)
	conn := dialBufconn(t, &ThresholdModel{MaxBytesPerSecond: 1e6})

	require.NoError(t, NewClient(conn, mem).Classify(context.Background()))

	attacks, err := mem.PredictionsByLabel(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, attacks, 1)
	assert.Equal(t, sample[1].FlowID, attacks[0].FlowID)

	normal, err := mem.PredictionsByLabel(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, normal, 1)
	assert.Equal(t, sample[0].FlowID, normal[0].FlowID)
}

func TestService_RejectsMalformedRequest(t *testing.T) {
	conn := dialBufconn(t, &ThresholdModel{})
	resp := new(structpb.Struct)
	err := conn.Invoke(context.Background(), ClassifyMethod, &structpb.Struct{}, resp)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
