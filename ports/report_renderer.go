package ports

import "biasclean/domain/fairness"

// ReportRenderer turns a report into human-readable documents
type ReportRenderer interface {
	Markdown(report *fairness.Report) ([]byte, error)
	HTML(report *fairness.Report) ([]byte, error)
}
