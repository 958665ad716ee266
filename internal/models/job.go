package models

import "time"

// Job statuses, in the order an inbox split moves through them.
const (
	StatusValidating = "VALIDATING"
	StatusSplitting  = "SPLITTING"
	StatusNaming     = "NAMING"
	StatusUploading  = "UPLOADING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Job is the Firestore record of one PDF dropped into the inbox bucket.
// It tracks the overall status and what the split produced.
type Job struct {
	FileHash            string          `firestore:"fileHash,omitempty"`
	DedupeKey           string          `firestore:"dedupeKey,omitempty"`
	OriginalFilename    string          `firestore:"originalFilename,omitempty"`
	Status              string          `firestore:"status,omitempty"`
	ErrorDetails        string          `firestore:"errorDetails,omitempty"`
	Attempts            int             `firestore:"attempts,omitempty"`
	PageCount           int             `firestore:"pageCount,omitempty"`
	SplitMode           string          `firestore:"splitMode,omitempty"`
	Naming              string          `firestore:"naming,omitempty"`
	Outputs             []JobOutput     `firestore:"outputs,omitempty"`
	Warnings            []string        `firestore:"warnings,omitempty"`
	Failures            []NamingFailure `firestore:"failures,omitempty"`
	WorkflowExecutionID string          `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time       `firestore:"createdAt,omitempty"`
	StartedAt           time.Time       `firestore:"startedAt,omitempty"`
	CompletedAt         time.Time       `firestore:"completedAt,omitempty"`
}

// JobOutput is one document written to the output bucket.
type JobOutput struct {
	Name      string `firestore:"name" json:"name"`
	GCSUri    string `firestore:"gcsUri" json:"gcsUri"`
	PageCount int    `firestore:"pageCount" json:"pageCount"`
}

// NamingFailure is a unit that kept its fallback name.
type NamingFailure struct {
	Index  int    `firestore:"index"`
	Name   string `firestore:"name"`
	Reason string `firestore:"reason"`
}
