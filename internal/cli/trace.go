package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/store"
	"github.com/roach88/scenecore/internal/tracequery"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Cascade  string
	Node     string // deliveries to this DEF name
	Event    string // deliveries to this eventIn
	From     string // Node.event
	To       string // Node.event
	Where    string // filter expression, see tracequery.ParseFilter
	Limit    int
}

// TraceDelivery is one delivery in trace output.
type TraceDelivery struct {
	Seq     int64           `json:"seq"`
	Cascade string          `json:"cascade"`
	Time    float64         `json:"time"`
	Depth   int             `json:"depth"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to"`
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value"`
}

// TraceCascade is a cascade and its matching deliveries.
type TraceCascade struct {
	Token      string          `json:"token"`
	Origin     string          `json:"origin"`
	Time       float64         `json:"time"`
	Seq        int64           `json:"seq"`
	Deliveries []TraceDelivery `json:"deliveries"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Cascades []TraceCascade `json:"cascades"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Cascades   int `json:"cascades"`
	Deliveries int `json:"deliveries"`
	MaxDepth   int `json:"max_depth"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query recorded cascades and deliveries",
		Long: `Query the event trace recorded by "scenecore run --db".

Deliveries are grouped by cascade and listed in seq order, indented by
their depth in the cascade. Filters narrow the deliveries shown; cascades
without a matching delivery are omitted.

Filter expressions (--where) are whitespace-separated terms that must all
hold, for example "depth>0 type=SFFloat time>=2".

Examples:
  scenecore trace --db ./trace.db
  scenecore trace --db ./trace.db --cascade 0192f3c4-...
  scenecore trace --db ./trace.db --to Mat.set_transparency
  scenecore trace --db ./trace.db --node Clock --where "time>1" --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (overrides store.path)")
	cmd.Flags().StringVar(&opts.Cascade, "cascade", "", "show a single cascade")
	cmd.Flags().StringVar(&opts.Node, "node", "", "deliveries to this node")
	cmd.Flags().StringVar(&opts.Event, "event", "", "deliveries to this eventIn")
	cmd.Flags().StringVar(&opts.From, "from", "", "deliveries routed from Node.event")
	cmd.Flags().StringVar(&opts.To, "to", "", "deliveries to Node.event")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum deliveries to show (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path := opts.Database
	if path == "" {
		path = opts.cfg().Store.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "--db is required (or set store.path)")
	}
	// A writable open would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	filter, err := opts.filter()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	st, err := store.Open(path, store.ReadOnly(), store.WithBusyTimeout(opts.cfg().Store.BusyTimeout))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result, err := queryTrace(ctx, st, filter, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query trace", err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// filter combines the filter flags into one predicate; nil matches every
// delivery.
func (o *TraceOptions) filter() (tracequery.Predicate, error) {
	var preds []tracequery.Predicate
	if o.Cascade != "" {
		preds = append(preds, tracequery.InCascade(o.Cascade))
	}
	if o.Node != "" {
		preds = append(preds, tracequery.Equals{Column: tracequery.ColumnDstName, Value: o.Node})
	}
	if o.Event != "" {
		preds = append(preds, tracequery.Equals{Column: tracequery.ColumnDstEvent, Value: o.Event})
	}
	for _, ep := range []struct {
		flag, value string
		build       func(string, string) tracequery.Predicate
	}{
		{"from", o.From, tracequery.From},
		{"to", o.To, tracequery.To},
	} {
		if ep.value == "" {
			continue
		}
		nodeName, event, ok := strings.Cut(ep.value, ".")
		if !ok || nodeName == "" || event == "" {
			return nil, fmt.Errorf("--%s %q: expected Node.event", ep.flag, ep.value)
		}
		preds = append(preds, ep.build(nodeName, event))
	}
	where, err := tracequery.ParseFilter(o.Where)
	if err != nil {
		return nil, err
	}
	if where != nil {
		preds = append(preds, where)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return tracequery.Where(preds...), nil
}

// queryTrace runs the delivery query and groups the matches under their
// cascades. Without a filter every cascade is listed, including those
// without deliveries.
func queryTrace(ctx context.Context, st *store.Store, filter tracequery.Predicate, limit int) (*TraceResult, error) {
	deliveries, err := tracequery.Find(ctx, st, tracequery.Select{Filter: filter, Limit: limit})
	if err != nil {
		return nil, err
	}
	cascades, err := st.ReadAllCascades(ctx)
	if err != nil {
		return nil, err
	}

	byToken := make(map[string][]TraceDelivery)
	result := &TraceResult{Cascades: []TraceCascade{}}
	for _, d := range deliveries {
		td, err := toTraceDelivery(d)
		if err != nil {
			return nil, err
		}
		byToken[d.CascadeToken] = append(byToken[d.CascadeToken], td)
		result.Stats.Deliveries++
		result.Stats.MaxDepth = max(result.Stats.MaxDepth, d.Depth)
	}

	for _, c := range cascades {
		matched := byToken[c.Token]
		if filter != nil && len(matched) == 0 {
			continue
		}
		if matched == nil {
			matched = []TraceDelivery{}
		}
		result.Cascades = append(result.Cascades, TraceCascade{
			Token:      c.Token,
			Origin:     c.Origin,
			Time:       c.Timestamp,
			Seq:        c.Seq,
			Deliveries: matched,
		})
	}
	result.Stats.Cascades = len(result.Cascades)
	return result, nil
}

func toTraceDelivery(d ir.Delivery) (TraceDelivery, error) {
	value, err := field.MarshalCanonical(d.Value)
	if err != nil {
		return TraceDelivery{}, fmt.Errorf("delivery %s: %w", d.ID, err)
	}
	return TraceDelivery{
		Seq:     d.Seq,
		Cascade: d.CascadeToken,
		Time:    d.Timestamp,
		Depth:   d.Depth,
		From:    d.Source(),
		To:      d.Target(),
		Type:    d.Value.Type().String(),
		Value:   value,
	}, nil
}

// outputTraceText prints cascades with their deliveries indented by depth.
func outputTraceText(formatter *OutputFormatter, result *TraceResult) {
	w := formatter.Writer
	if len(result.Cascades) == 0 {
		fmt.Fprintln(w, "No matching deliveries.")
		return
	}

	for _, c := range result.Cascades {
		fmt.Fprintf(w, "cascade %s t=%g origin %s\n", c.Token, c.Time, c.Origin)
		for _, d := range c.Deliveries {
			indent := strings.Repeat("  ", d.Depth+1)
			from := d.From
			if from == "" {
				from = "(direct)"
			}
			fmt.Fprintf(w, "%s[%d] %s -> %s %s %s\n", indent, d.Seq, from, d.To, d.Type, d.Value)
		}
	}

	fmt.Fprintf(w, "\n%d cascade(s), %d deliveries, max depth %d\n",
		result.Stats.Cascades, result.Stats.Deliveries, result.Stats.MaxDepth)
}
