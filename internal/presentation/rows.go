package presentation

import (
	"Go2NetIDS/internal/model"
)

// Row is one prediction as the dashboard displays it.
type Row struct {
	FlowID          string `json:"flow_id"`
	SourceIP        string `json:"source_ip"`
	DestinationIP   string `json:"destination_ip"`
	SourcePort      string `json:"source_port"`
	DestinationPort string `json:"destination_port"`
	Protocol        string `json:"protocol"`
	Label           string `json:"label"`
}

// RowOf splits the flow id of p into display columns. The five fields are
// kept as text so the N/A port sentinel passes through.
func RowOf(p model.Prediction) (Row, error) {
	parts, err := model.SplitFlowID(p.FlowID)
	if err != nil {
		return Row{}, err
	}
	return Row{
		FlowID:          p.FlowID,
		SourceIP:        parts[0],
		DestinationIP:   parts[1],
		SourcePort:      parts[2],
		DestinationPort: parts[3],
		Protocol:        parts[4],
		Label:           p.Verdict(),
	}, nil
}
