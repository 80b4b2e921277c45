package analytics

import "time"

// ReportData is the tagged variant carried by a Report. Exactly one concrete
// shape exists per analysis type; no mixed or partial shapes are produced.
type ReportData interface {
	isReportData()
}

// Report is the envelope returned for every analysis request
type Report struct {
	Type        AnalysisType `json:"type"`
	Period      Period       `json:"period"`
	Data        ReportData   `json:"data"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// assembleReport wraps aggregator output into the response envelope
func assembleReport(req ReportRequest, data ReportData, now time.Time) *Report {
	return &Report{
		Type:        req.AnalysisType,
		Period:      req.Period,
		Data:        data,
		GeneratedAt: now,
	}
}
