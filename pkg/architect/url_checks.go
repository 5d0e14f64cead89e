package architect

import (
	"context"
	"fmt"
	"net/http"

	"autodev/pkg/agent"
	"autodev/pkg/metrics"
)

// handleUnitTesting checks every external URL and drops the ones that do not
// answer 200. A URL that cannot be reached at all is kept.
func (d *Driver) handleUnitTesting(ctx context.Context) (agent.State, error) {
	var excluded []string

	for _, url := range d.doc.ExternalURLs {
		if err := ctx.Err(); err != nil {
			return agent.StateUnitTesting, err
		}

		d.observer.Report(Position, agent.MessageUnitTest, fmt.Sprintf("Testing URL Endpoint: %s", url))

		status, err := d.checker.Status(ctx, url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return agent.StateUnitTesting, ctx.Err()
			}
			d.logger.Warn("Error Checking %s: %v", url, err)
			d.metrics.ObserveURLCheck(metrics.OutcomeTransport)
		case status != http.StatusOK:
			excluded = append(excluded, url)
			d.metrics.ObserveURLCheck(metrics.OutcomeExcluded)
		default:
			d.metrics.ObserveURLCheck(metrics.OutcomeSuccess)
		}
	}

	if len(excluded) > 0 {
		d.logger.Info("excluding %d of %d external urls", len(excluded), len(d.doc.ExternalURLs))
		d.doc.RemoveURLs(excluded)
	}

	return agent.StateFinished, nil
}
