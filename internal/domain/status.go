package domain

import (
	"fmt"
	"math"
)

// LoadPhase identifies which variant of LoadStatus is active
type LoadPhase int

const (
	PhaseStandby LoadPhase = iota
	PhaseProgressing
	PhaseFinished
	PhaseFailure
	PhaseNoConnection
)

// String returns the string representation of the phase.
func (p LoadPhase) String() string {
	switch p {
	case PhaseStandby:
		return "standby"
	case PhaseProgressing:
		return "progressing"
	case PhaseFinished:
		return "finished"
	case PhaseFailure:
		return "failure"
	case PhaseNoConnection:
		return "no_connection"
	default:
		return "unknown"
	}
}

// LoadStatus is the load/connectivity state reported to the presentation layer.
// Progress is only meaningful in PhaseProgressing, Reason only in PhaseFailure.
// The zero value is Standby.
type LoadStatus struct {
	Phase    LoadPhase
	Progress float64
	Reason   string
}

// Standby is the initial status before any load was attempted
func Standby() LoadStatus {
	return LoadStatus{Phase: PhaseStandby}
}

// Progressing reports an in-flight load at the given fraction
func Progressing(progress float64) LoadStatus {
	return LoadStatus{Phase: PhaseProgressing, Progress: progress}
}

// Finished reports a completed load
func Finished() LoadStatus {
	return LoadStatus{Phase: PhaseFinished, Progress: 1}
}

// Failure reports a failed load with a human-readable reason
func Failure(reason string) LoadStatus {
	return LoadStatus{Phase: PhaseFailure, Reason: reason}
}

// NoConnection reports that connectivity was lost
func NoConnection() LoadStatus {
	return LoadStatus{Phase: PhaseNoConnection}
}

// Percent returns the progress as a whole percentage (0-100). A load still
// in progress never shows 100.
func (s LoadStatus) Percent() int {
	p := int(math.Round(s.Progress * 100))
	if s.Phase == PhaseProgressing && p > 99 {
		return 99
	}
	return p
}

// IsTerminal returns true for phases that only a connectivity loss or an
// explicit reload can leave.
func (s LoadStatus) IsTerminal() bool {
	return s.Phase == PhaseFinished || s.Phase == PhaseFailure
}

func (s LoadStatus) String() string {
	switch s.Phase {
	case PhaseProgressing:
		return fmt.Sprintf("progressing(%.2f)", s.Progress)
	case PhaseFailure:
		return fmt.Sprintf("failure(%q)", s.Reason)
	default:
		return s.Phase.String()
	}
}
