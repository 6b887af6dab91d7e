package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mmcdole/inferno/internal/domain"
)

// errLoadFailed reports a load that ended in the failure phase
var errLoadFailed = errors.New("load failed")

// runHeadless prints one line per status until the load finishes or fails.
// NoConnection is not final: the load restarts once the network returns.
func runHeadless(ctx context.Context, updates <-chan domain.LoadStatus, out io.Writer) (domain.LoadStatus, error) {
	for {
		select {
		case <-ctx.Done():
			return domain.LoadStatus{}, ctx.Err()
		case status, ok := <-updates:
			if !ok {
				return domain.LoadStatus{}, errors.New("status updates closed")
			}
			fmt.Fprintln(out, formatStatus(status))

			if !status.IsTerminal() {
				continue
			}
			if status.Phase == domain.PhaseFailure {
				return status, fmt.Errorf("%w: %s", errLoadFailed, status.Reason)
			}
			return status, nil
		}
	}
}

func formatStatus(s domain.LoadStatus) string {
	switch s.Phase {
	case domain.PhaseProgressing:
		return fmt.Sprintf("loading %3d%%", s.Percent())
	case domain.PhaseFinished:
		return "finished"
	case domain.PhaseFailure:
		return "failed: " + s.Reason
	case domain.PhaseNoConnection:
		return "no connection, waiting"
	default:
		return s.Phase.String()
	}
}
