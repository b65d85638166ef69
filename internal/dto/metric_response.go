package dto

type MetricSummaryResponse struct {
	TotalEvents      int64 `json:"totalEvents"`
	TotalErrorEvents int64 `json:"totalErrorEvents"`
	TotalTransfers   int64 `json:"totalTransfers"`
	TotalBytes       int64 `json:"totalBytes"`
}

// TimeseriesDataPoint
type TimeseriesDataPoint struct {
	Timestamp int64 `json:"timestamp"` // Epoch Milliseconds
	Value     int64 `json:"value"`
}

// TimeseriesSeries
type TimeseriesSeries struct {
	Name string                `json:"name"` // Series name, e.g. "Transfer", "Local Listener"
	Data []TimeseriesDataPoint `json:"data"`
}

type MetricTimeseriesResponse struct {
	Series []TimeseriesSeries `json:"series"`
}

type HostListResponse struct {
	Hosts []string `json:"hosts"`
}

type DistributionDataPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type MetricDistributionResponse struct {
	MetricName   string                  `json:"metricName"`
	Dimension    string                  `json:"dimension"`
	Distribution []DistributionDataPoint `json:"distribution"`
}
