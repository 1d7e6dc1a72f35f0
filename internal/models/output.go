package models

// TelemetryRecord is the wire form published to Kafka/NATS after each
// estimate. Short JSON keys keep the stream compact for downstream
// consumers that archive every query.
type TelemetryRecord struct {
	Timestamp int64              `json:"T"`
	Symbol    string             `json:"s"`
	Side      string             `json:"sd"`
	Size      float64            `json:"q"`
	TotalCost float64            `json:"tc"`
	BookState string             `json:"bs"`
	LatencyMs float64            `json:"lat"`
	StageMs   map[string]float64 `json:"stages,omitempty"`
}

// TelemetryFromEstimate flattens an estimate into its telemetry form.
func TelemetryFromEstimate(e CostEstimate) TelemetryRecord {
	return TelemetryRecord{
		Timestamp: e.Timestamp,
		Symbol:    e.Symbol,
		Side:      string(e.Side),
		Size:      e.Size,
		TotalCost: e.TotalCost,
		BookState: e.BookState,
		LatencyMs: e.LatencyMs,
		StageMs:   e.StageMs,
	}
}
