package models

type SummaryParameters struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type SummaryRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters SummaryParameters `json:"parameters"`
}

type SummaryResponse struct {
	SummaryText string `json:"summary_text"`
}

type SummaryBatchResponse []SummaryResponse

type HuggingFaceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}
