package joblogs

type ListQuery struct {
	AfterID int      `query:"after_id" json:"after_id,omitempty" validate:"min=0"`
	Attempt int      `query:"attempt" json:"attempt,omitempty" validate:"min=0"`
	Level   []string `query:"level" json:"level,omitempty" validate:"dive,oneof=info warn error"`
	Limit   int      `query:"limit" json:"limit,omitempty" default:"100" validate:"min=1,max=500"`
}

// ListResponse carries one page of a job's log. NextAfterID is the after_id
// that continues from the last entry, for tailing a running job.
type ListResponse struct {
	Job         interface{}       `json:"job"`
	Logs        interface{}       `json:"logs"`
	Attempts    []*AttemptSummary `json:"attempts"`
	NextAfterID int               `json:"next_after_id"`
}
