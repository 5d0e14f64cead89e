package coder

import (
	"context"
	"fmt"

	"autodev/pkg/agent"
	"autodev/pkg/generate"
	"autodev/pkg/templates"
	"autodev/pkg/utils"
)

// maxBuildErrorTokens bounds the compiler output sent back to the model.
const maxBuildErrorTokens = 4000

// handleDiscovery writes the first draft of the server from the code template.
func (d *Driver) handleDiscovery(ctx context.Context) (agent.State, error) {
	tmpl, err := d.workspace.CodeTemplate()
	if err != nil {
		return agent.StateDiscovery, err
	}

	input := fmt.Sprintf("CODE TEMPLATE: %s\nPROJECT DESCRIPTION: %s\n", tmpl, d.doc.ProjectDescription)
	if err := d.writeCode(ctx, templates.PrintBackendCode, input); err != nil {
		return agent.StateDiscovery, err
	}
	return agent.StateWorking, nil
}

// handleWorking completes the draft, or repairs it when the last build failed.
func (d *Driver) handleWorking(ctx context.Context) (agent.State, error) {
	if d.bugCount == 0 {
		input := fmt.Sprintf("CODE TEMPLATE: %s\nPROJECT DESCRIPTION: %s\n", d.doc.Code(), d.doc.JSON())
		if err := d.writeCode(ctx, templates.PrintImprovedCode, input); err != nil {
			return agent.StateWorking, err
		}
		return agent.StateUnitTesting, nil
	}

	buildErrors := ""
	if d.lastBuildErrors != nil {
		buildErrors = utils.TruncateTokens(*d.lastBuildErrors, maxBuildErrorTokens)
	}
	input := fmt.Sprintf("BROKEN CODE: %s\nERROR BUGS: %s\n"+
		"THIS FUNCTION ONLY OUTPUTS CODE. JUST OUTPUT THE CODE", d.doc.Code(), buildErrors)
	if err := d.writeCode(ctx, templates.PrintFixedCode, input); err != nil {
		return agent.StateWorking, err
	}
	return agent.StateUnitTesting, nil
}

// writeCode generates code with fn, persists it and stores it in the document.
func (d *Driver) writeCode(ctx context.Context, fn templates.Function, input string) error {
	text, err := d.ask(ctx, generate.Task{Function: fn, Input: input})
	if err != nil {
		return err
	}

	code := generate.StripCodeFences(text)
	if err := d.workspace.SaveBackendCode(code); err != nil {
		return fmt.Errorf("failed to save backend code: %w", err)
	}
	d.doc.SetBackendCode(code)
	return nil
}
