// Package export writes recommendation reports to external destinations.
package export

import "context"

// ReportRow is one recommendation line in the report sheet.
type ReportRow struct {
	Month         string
	SpendingID    int64
	CardID        string
	SecondCardID  string
	SpendCents    int64
	RewardCents   int64
	OverflowCents int64
}

// ReportWriter is the outbound port for report destinations.
type ReportWriter interface {
	AppendReport(ctx context.Context, row ReportRow) error
}
