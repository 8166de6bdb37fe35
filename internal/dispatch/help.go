// internal/dispatch/help.go
package dispatch

import (
	"context"
	"fmt"

	"mfg-orchestrator/internal/models"
)

const helpTemplate = `I'm %s, your manufacturing assistant. I can help you with:

- **Get a Quote**: "Quote 50 brackets for Acme Corp, need by Friday"
- **Schedule Production**: "Schedule an emergency run for Globex"
- **Check Job Status**: "What's the status of job 20260301-0001?"
- **View Schedule**: "Show me the production schedule"
- **View Inventory**: "Show me current inventory"
- **Accept Quote**: "Accept the balanced option"

How can I help you today?`

// directResponse answers HELP and anything the classifier could not place.
func (d *Dispatcher) directResponse(ctx context.Context, req *request) (*models.ResponseEnvelope, error) {
	return envelope(models.KindText, HelpText(d.opts.AssistantName), nil), nil
}

func HelpText(assistantName string) string {
	return fmt.Sprintf(helpTemplate, assistantName)
}
