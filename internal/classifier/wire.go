package classifier

import (
	"fmt"

	"Go2NetIDS/internal/model"

	"google.golang.org/protobuf/types/known/structpb"
)

// Columns is the feature order of every row sent to the classifier.
var Columns = []string{
	"flow_duration",
	"flow_bytes_per_second",
	"forward_header_length",
	"backward_header_length",
	"packet_length_std_dev",
	"packet_size_avg",
}

// EncodeRequest packs feature vectors as
// {"columns": [...], "flows": [{"flow_id": "...", "values": [...]}]}.
func EncodeRequest(vectors []model.FeatureVector) (*structpb.Struct, error) {
	columns := make([]interface{}, len(Columns))
	for i, c := range Columns {
		columns[i] = c
	}
	flows := make([]interface{}, len(vectors))
	for i, fv := range vectors {
		values := fv.Values()
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		flows[i] = map[string]interface{}{"flow_id": fv.FlowID, "values": row}
	}
	return structpb.NewStruct(map[string]interface{}{"columns": columns, "flows": flows})
}

// DecodeRequest is the inverse of EncodeRequest.
func DecodeRequest(req *structpb.Struct) ([]model.FeatureVector, error) {
	flows := req.GetFields()["flows"].GetListValue()
	if flows == nil {
		return nil, fmt.Errorf("request has no flows list")
	}
	vectors := make([]model.FeatureVector, 0, len(flows.GetValues()))
	for i, v := range flows.GetValues() {
		flow := v.GetStructValue()
		if flow == nil {
			return nil, fmt.Errorf("flow %d is not an object", i)
		}
		id := flow.GetFields()["flow_id"].GetStringValue()
		if id == "" {
			return nil, fmt.Errorf("flow %d has no flow_id", i)
		}
		values := flow.GetFields()["values"].GetListValue().GetValues()
		if len(values) != len(Columns) {
			return nil, fmt.Errorf("flow %s: expected %d values, got %d", id, len(Columns), len(values))
		}
		vectors = append(vectors, model.FeatureVector{
			FlowID:              id,
			Duration:            values[0].GetNumberValue(),
			BytesPerSecond:      values[1].GetNumberValue(),
			ForwardHeaderBytes:  int64(values[2].GetNumberValue()),
			BackwardHeaderBytes: int64(values[3].GetNumberValue()),
			PacketLengthStdDev:  values[4].GetNumberValue(),
			PacketLengthMean:    values[5].GetNumberValue(),
		})
	}
	return vectors, nil
}

// EncodeResponse packs labels as {"labels": {"<flow_id>": <label>}}.
func EncodeResponse(preds []model.Prediction) (*structpb.Struct, error) {
	labels := make(map[string]interface{}, len(preds))
	for _, p := range preds {
		labels[p.FlowID] = p.Label
	}
	return structpb.NewStruct(map[string]interface{}{"labels": labels})
}

// DecodeResponse is the inverse of EncodeResponse.
func DecodeResponse(resp *structpb.Struct) ([]model.Prediction, error) {
	labels := resp.GetFields()["labels"].GetStructValue()
	if labels == nil {
		return nil, fmt.Errorf("response has no labels object")
	}
	preds := make([]model.Prediction, 0, len(labels.GetFields()))
	for id, v := range labels.GetFields() {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return nil, fmt.Errorf("label of %s is not a number", id)
		}
		preds = append(preds, model.Prediction{FlowID: id, Label: int(v.GetNumberValue())})
	}
	return preds, nil
}
