package domain

type Answer struct {
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	NeedsAssignment bool   `json:"needs_assignment"`
}

type Report struct {
	ID    string   `json:"id,omitempty"`
	Title string   `json:"title"`
	Items []Answer `json:"items"`
}

// ReportTitle names a report generated from the questionnaire titled title.
func ReportTitle(title string) string {
	return "Report for " + title
}
