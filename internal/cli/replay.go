package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cavrolab/flowpanel/internal/domain/protocol"
	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const replayTenant = "replay"

// replayScript is the YAML document read by flowpanel replay.
type replayScript struct {
	Name           string       `yaml:"name"`
	PreserveEdited bool         `yaml:"preserve_edited"`
	Rows           []replayRow  `yaml:"rows"`
	Edits          []replayEdit `yaml:"edits"`
}

type replayRow struct {
	FromPort int    `yaml:"from_port"`
	ToPort   int    `yaml:"to_port"`
	Cycle    string `yaml:"cycle"`
	Repeat   int    `yaml:"repeat"`
}

type replayEdit struct {
	Row   int    `yaml:"row"`
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// NewReplayCmd creates the replay command
func NewReplayCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay scripted edits through a table",
		Long: `Builds a table from the script's rows, applies each edit in order and prints
the table after every edit. Recomputed cells are highlighted. Ends with the
transfer steps the table would submit. Nothing is sent to a device.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			script, err := loadReplayScript(args[0])
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cmd.OutOrStdout(), script)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func loadReplayScript(path string) (replayScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return replayScript{}, fmt.Errorf("read script: %w", err)
	}
	var script replayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return replayScript{}, fmt.Errorf("parse script: %w", err)
	}
	if script.Name == "" {
		script.Name = "replay"
	}
	if len(script.Rows) == 0 {
		script.Rows = []replayRow{{}}
	}
	return script, nil
}

func runReplay(ctx context.Context, out io.Writer, script replayScript) error {
	svc := protocol.NewService(nil, reconcile.Options{PreserveEdited: script.PreserveEdited}, nil)

	table, err := svc.CreateTable(ctx, replayTenant, protocol.CreateTableRequest{
		Name: script.Name,
		Rows: len(script.Rows),
	})
	if err != nil {
		return err
	}
	for i, r := range script.Rows {
		index := table.Rows[i].Index
		if err := setupRow(ctx, svc, table.ID, index, r); err != nil {
			return fmt.Errorf("row %d: %w", index, err)
		}
	}

	p := newTablePrinter(out)
	view, err := svc.GetTable(ctx, replayTenant, table.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", p.bold(view.Name))
	p.print(view.Rows, nil)

	for i, e := range script.Edits {
		res, err := svc.EditField(ctx, replayTenant, protocol.EditFieldRequest{
			TableID: table.ID,
			Row:     e.Row,
			Field:   e.Field,
			Value:   e.Value,
		})
		if err != nil {
			return fmt.Errorf("edit %d: %w", i+1, err)
		}

		fmt.Fprintf(out, "\n#%d row %d %s = %q", i+1, e.Row, e.Field, e.Value)
		switch {
		case res.Result.Skipped:
			fmt.Fprintf(out, "  %s\n", p.warn("recompute skipped, rate or duration is zero"))
		case res.Result.OverwroteEdit:
			fmt.Fprintf(out, "  %s\n", p.alert("typed value overwritten, rate or duration is zero"))
		default:
			fmt.Fprintf(out, "  -> %s\n", res.Result.Applied)
		}

		view, err := svc.GetTable(ctx, replayTenant, table.ID)
		if err != nil {
			return err
		}
		p.print(view.Rows, &highlight{row: e.Row, edited: reconcile.Field(e.Field), applied: res.Result.Applied})
	}

	plan, err := svc.Plan(ctx, replayTenant, table.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n", p.bold(fmt.Sprintf("%d transfer steps", len(plan.Steps))))
	for i, step := range plan.Steps {
		fmt.Fprintf(out, "  %2d. row %d: %s µL from port %d to port %d\n",
			i+1, step.Row, reconcile.FormatQuantity(step.Volume), step.FromPort, step.ToPort)
	}
	return nil
}

func setupRow(ctx context.Context, svc *protocol.Service, tableID string, index int, r replayRow) error {
	if r.FromPort != 0 || r.ToPort != 0 {
		from, to := r.FromPort, r.ToPort
		if from == 0 {
			from = protocol.DefaultFromPort
		}
		if to == 0 {
			to = protocol.DefaultToPort
		}
		if _, err := svc.SetRoute(ctx, replayTenant, protocol.SetRouteRequest{
			TableID: tableID, Row: index, FromPort: from, ToPort: to,
		}); err != nil {
			return err
		}
	}
	if r.Cycle != "" || r.Repeat != 0 {
		if _, err := svc.SetCycle(ctx, replayTenant, protocol.SetCycleRequest{
			TableID: tableID, Row: index, Marker: r.Cycle, Repeat: r.Repeat,
		}); err != nil {
			return err
		}
	}
	return nil
}

type highlight struct {
	row     int
	edited  reconcile.Field
	applied reconcile.Group
}

type tablePrinter struct {
	out        io.Writer
	bold       func(a ...any) string
	recomputed func(a ...any) string
	typed      func(a ...any) string
	warn       func(a ...any) string
	alert      func(a ...any) string
}

func newTablePrinter(out io.Writer) *tablePrinter {
	return &tablePrinter{
		out:        out,
		bold:       color.New(color.Bold).SprintFunc(),
		recomputed: color.New(color.FgYellow, color.Bold).SprintFunc(),
		typed:      color.New(color.FgCyan).SprintFunc(),
		warn:       color.New(color.FgYellow).SprintFunc(),
		alert:      color.New(color.FgRed).SprintFunc(),
	}
}

var replayColumns = []string{"row", "h", "min", "s", "rate", "volume", "from", "to", "cycle"}

// print writes rows as an aligned table. Padding is applied before colour
// so escape codes do not disturb the alignment.
func (p *tablePrinter) print(rows []protocol.RowView, hl *highlight) {
	cells := make([][]string, len(rows))
	widths := make([]int, len(replayColumns))
	for i, h := range replayColumns {
		widths[i] = len(h)
	}
	for i, r := range rows {
		cycle := string(r.Cycle)
		if r.Cycle == protocol.CycleStart {
			cycle += " x" + strconv.Itoa(r.Repeat)
		}
		cells[i] = []string{
			strconv.Itoa(r.Index),
			r.Values.Hours,
			r.Values.Minutes,
			r.Values.Seconds,
			r.Values.Rate,
			r.Values.Volume,
			strconv.Itoa(r.FromPort),
			strconv.Itoa(r.ToPort),
			cycle,
		}
		for j, c := range cells[i] {
			widths[j] = max(widths[j], len(c))
		}
	}

	header := make([]string, len(replayColumns))
	for i, h := range replayColumns {
		header[i] = p.bold(pad(h, widths[i]))
	}
	fmt.Fprintln(p.out, strings.Join(header, "  "))

	for i, r := range rows {
		line := make([]string, len(cells[i]))
		for j, c := range cells[i] {
			text := pad(c, widths[j])
			if hl != nil && hl.row == r.Index && j >= 1 && j <= len(reconcile.Fields) {
				field := reconcile.Fields[j-1]
				switch {
				case hl.applied != 0 && field.Group() == hl.applied:
					text = p.recomputed(text)
				case field == hl.edited:
					text = p.typed(text)
				}
			}
			line[j] = text
		}
		fmt.Fprintln(p.out, strings.Join(line, "  "))
	}
}

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
