package architect

import (
	"context"

	"autodev/pkg/agent"
	"autodev/pkg/generate"
	"autodev/pkg/project"
	"autodev/pkg/templates"
)

// handleDiscovery classifies the project and lists external URLs when it needs them.
func (d *Driver) handleDiscovery(ctx context.Context) (agent.State, error) {
	scope, err := decode[project.ProjectScope](ctx, d, generate.Task{
		Function: templates.PrintProjectScope,
		Input:    d.doc.ProjectDescription,
	})
	if err != nil {
		return agent.StateDiscovery, err
	}
	d.doc.ProjectScope = &scope

	d.logger.Info("scope: crud=%t login=%t external_urls=%t",
		scope.RequiresCRUD, scope.RequiresLogin, scope.RequiresExternalURLs)

	if !scope.RequiresExternalURLs {
		return agent.StateFinished, nil
	}

	urls, err := decode[[]string](ctx, d, generate.Task{
		Function: templates.PrintSiteURLs,
		Input:    d.doc.ProjectDescription,
	})
	if err != nil {
		return agent.StateDiscovery, err
	}
	if urls == nil {
		urls = []string{}
	}
	d.doc.ExternalURLs = urls

	return agent.StateUnitTesting, nil
}
