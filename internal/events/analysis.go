package events

import "time"

// AnalysisStart is emitted before a query document is analyzed.
type AnalysisStart struct {
	Query         string
	OperationName string
}

// AnalysisFinish is emitted after a query document is analyzed.
type AnalysisFinish struct {
	Query         string
	OperationName string
	Operations    []Operation
	Errors        []error
	Duration      time.Duration
}

// Operation summarizes one scored operation of an analyzed document.
type Operation struct {
	Name       string
	Type       string
	Complexity float64
	Nodes      int
	// Outcome is "accepted" or the reason the operation was rejected.
	Outcome string
}
