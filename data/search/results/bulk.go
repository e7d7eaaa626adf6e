package results

// BulkError is one failed document of a multi-document write
type BulkError struct {
	Position int    `json:"position"`
	ID       string `json:"_id,omitempty"`
	Status   int    `json:"status"`
	Type     string `json:"type,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// BulkSummary is the outcome of a multi-document write.
// Success+Failed equals Total and Created+Modified equals Success.
type BulkSummary struct {
	Total    int         `json:"total"`
	Success  int         `json:"success"`
	Created  int         `json:"created"`
	Modified int         `json:"modified"`
	Failed   int         `json:"failed"`
	Errors   []BulkError `json:"errors"`
	Records  []*Record   `json:"records,omitempty"`
}

// NewBulkSummary creates a summary for total documents
func NewBulkSummary(total int) *BulkSummary {
	return &BulkSummary{Total: total, Errors: []BulkError{}}
}

// AddCreated counts a created document
func (s *BulkSummary) AddCreated() {
	s.Success++
	s.Created++
}

// AddModified counts a replaced or updated document
func (s *BulkSummary) AddModified() {
	s.Success++
	s.Modified++
}

// AddFailure counts a failed document
func (s *BulkSummary) AddFailure(e BulkError) {
	s.Failed++
	s.Errors = append(s.Errors, e)
}

// Consistent reports whether the counters satisfy the summary invariants
func (s *BulkSummary) Consistent() bool {
	return s.Success+s.Failed == s.Total && s.Created+s.Modified == s.Success
}
