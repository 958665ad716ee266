package models

// These structs define the JSON payloads exchanged with API clients and
// with the Cloud Workflow that picks up finished inbox jobs.

// WorkflowRequest is the argument of the hand-off workflow execution.
type WorkflowRequest struct {
	JobID        string      `json:"jobId"`
	OutputBucket string      `json:"outputBucket"`
	Outputs      []JobOutput `json:"outputs"`
}

// InfoResponse is returned by the info endpoint.
type InfoResponse struct {
	PageCount int  `json:"pageCount"`
	AIEnabled bool `json:"aiEnabled"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	AIEnabled bool   `json:"aiEnabled"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
