package model

import "fmt"

// IngestionState is the phase of a dataset ingestion run.
type IngestionState string

const (
	StateIdle        IngestionState = "idle"
	StateDownloading IngestionState = "downloading"
	StateProcessing  IngestionState = "processing"
	StateSaving      IngestionState = "saving"
	StateCompleted   IngestionState = "completed"
	StateFailed      IngestionState = "failed"
)

// Progress is an observable ingestion update. It is comparable with ==.
type Progress struct {
	State   IngestionState `json:"state"`
	Total   int            `json:"total,omitempty"`
	Current int            `json:"current,omitempty"`
	Message string         `json:"message,omitempty"`
}

func Idle() Progress        { return Progress{State: StateIdle} }
func Downloading() Progress { return Progress{State: StateDownloading} }
func Completed() Progress   { return Progress{State: StateCompleted} }

func Processing(total, current int) Progress {
	return Progress{State: StateProcessing, Total: total, Current: current}
}

func Saving(total, current int) Progress {
	return Progress{State: StateSaving, Total: total, Current: current}
}

func Failed(message string) Progress {
	return Progress{State: StateFailed, Message: message}
}

// Fraction returns completion in [0, 1].
func (p Progress) Fraction() float64 {
	switch p.State {
	case StateProcessing, StateSaving:
		if p.Total > 0 {
			return float64(p.Current) / float64(p.Total)
		}
		return 0
	case StateCompleted:
		return 1
	default:
		return 0
	}
}

// IsTerminal reports whether the run has completed or failed.
func (p Progress) IsTerminal() bool {
	return p.State == StateCompleted || p.State == StateFailed
}

// IsActive reports whether a run is in flight.
func (p Progress) IsActive() bool {
	switch p.State {
	case StateDownloading, StateProcessing, StateSaving:
		return true
	}
	return false
}

// IsIndeterminate reports whether Fraction carries no information.
func (p Progress) IsIndeterminate() bool {
	switch p.State {
	case StateProcessing, StateSaving, StateCompleted:
		return false
	}
	return true
}

func (p Progress) Description() string {
	switch p.State {
	case StateIdle:
		return "Ready"
	case StateDownloading:
		return "Downloading cities data..."
	case StateProcessing:
		return fmt.Sprintf("Processing cities... %d/%d", p.Current, p.Total)
	case StateSaving:
		return fmt.Sprintf("Saving cities... %d/%d", p.Current, p.Total)
	case StateCompleted:
		return "Data loaded successfully"
	case StateFailed:
		return "Error: " + p.Message
	}
	return string(p.State)
}
