package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `flowpanel drives a syringe pump through protocol tables.

Core concepts:
- Table: an ordered set of rows with a monotonic tick that advances on every change.
- Row: one transfer step. Duration (hours, minutes, seconds), rate and volume are linked by volume = rate * duration.
- Recency: each row remembers its two most recently edited groups. An edit recomputes the group touched least recently.

Workflow:
1) create_table, then add_row for each step (or pass rows to create_table).
2) edit_field to type values; the response shows which group was recomputed.
   - If result.overwrote_edit is true the value you typed was replaced because a divisor was 0. Set the other quantities first.
3) set_route for ports, set_cycle to repeat a block of rows.
4) get_payload to review, then submit_protocol or save_protocol.

Single commands: extract, dispense, execute. Volumes must lie strictly inside the configured limits.

Docs:
- flowpanel://docs/reconciliation
- flowpanel://docs/protocols
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "flowpanel://docs/reconciliation",
		Name:        "docs_reconciliation",
		Title:       "Duration, rate and volume reconciliation",
		Description: "How an edit to one field decides which other field is recomputed.",
		Content: `# Reconciliation

Every row keeps volume = rate * duration, with duration = hours*3600 + minutes*60 + seconds.

## Recency

Each row tracks the last two groups edited, starting at (volume, rate).
Editing the same group again does not change the order.

| Edited   | Recompute                                      |
|----------|------------------------------------------------|
| duration | rate, unless rate is in the last two; else volume |
| rate     | duration, unless duration is in the last two; else volume |
| volume   | duration, unless duration is in the last two; else rate |

## Zero divisors

Rate needs duration != 0 and duration needs rate != 0. When the divisor is 0,
volume is recomputed as rate * duration instead.

On a fresh row, typing volume = 100 recomputes volume itself and yields 0.
The edit result reports this as overwrote_edit and the journal records a
reconcile_overwrite entry. With reconcile.preserve_edited enabled the typed
value is kept and result.skipped is set.

## Input handling

Empty, unparsable, negative or non-finite text counts as 0. Recomputed
durations are truncated to whole seconds.

## Example

1. seconds = 60 -> volume recomputed (0)
2. rate = 5 -> volume recomputed (300)
3. volume = 600 -> rate recomputed (10)
`,
	},
	{
		URI:         "flowpanel://docs/protocols",
		Name:        "docs_protocols",
		Title:       "Submitting protocols",
		Description: "Cycle markers, step expansion and device commands.",
		Content: `# Protocols

## Steps

Each row becomes one step: extract(volume, from_port) then dispense(volume, to_port).
Volumes are rounded to whole microlitres and must stay strictly between
the configured limits. After all steps one execute runs the queued chain. The first failing command
stops the submission and is journaled as command_failed.

## Cycles

Rows from a start marker through the next end marker run repeat times
(repeat is read from the start row, 0 runs once). Repeat is at most 1000,
a table holds at most 500 rows, and a table expanding past 10000 steps is
rejected.

- A start without an end runs to the last row.
- A second start closes the open cycle.
- An end outside a cycle is an ordinary row.

## Limits

Step and single-command volumes must lie strictly between the configured
minimum and maximum (default 0 and 1000 ul). Ports are 1 to 9. Volumes are
sent as whole microlitres.

## Payload

get_payload and save_protocol use parallel arrays keyed by field name
(index, hours, minutes, seconds, duration, rate, volume, from_port, to_port,
cycle, repeat), all in row index order.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
