package table

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

// AggFunc is an aggregate function.
type AggFunc string

const (
	AggCount AggFunc = "count"
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// Literal is a filter operand. It decodes from a JSON string, number or
// boolean so that planner replies like {"value": 40} are accepted.
type Literal string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Literal) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*l = ""
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Literal(s)
	default:
		*l = Literal(trimmed)
	}
	return nil
}

// Filter keeps rows whose Column compares to Value under Op.
type Filter struct {
	Column string  `json:"column"`
	Op     Op      `json:"op"`
	Value  Literal `json:"value"`
}

// Aggregate reduces the filtered rows, optionally per group.
// Column may be empty for count.
type Aggregate struct {
	Func   AggFunc `json:"func"`
	Column string  `json:"column,omitempty"`
}

// Query is a declarative question over one table.
type Query struct {
	Table      string     `json:"table,omitempty"`
	Filters    []Filter   `json:"filters,omitempty"`
	Select     []string   `json:"select,omitempty"`
	GroupBy    string     `json:"group_by,omitempty"`
	Aggregate  *Aggregate `json:"aggregate,omitempty"`
	SortBy     string     `json:"sort_by,omitempty"`
	Descending bool       `json:"descending,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Limits bound the work and output of Execute.
type Limits struct {
	// MaxRows caps the rows returned. Zero means DefaultMaxRows.
	MaxRows int

	// Timeout bounds a single execution. Zero means no extra deadline.
	Timeout time.Duration
}

const (
	// DefaultMaxRows is the output row cap.
	DefaultMaxRows = 50

	// DefaultTimeout bounds a single execution.
	DefaultTimeout = 5 * time.Second

	// checkEvery is how many rows are scanned between context checks.
	checkEvery = 256
)

// DefaultLimits returns the default execution limits.
func DefaultLimits() Limits {
	return Limits{MaxRows: DefaultMaxRows, Timeout: DefaultTimeout}
}

// Result is the output of a query.
type Result struct {
	Table     core.TableRef `json:"table"`
	Columns   []string      `json:"columns"`
	Rows      [][]string    `json:"rows"`
	TotalRows int           `json:"total_rows"`
	Truncated bool          `json:"truncated"`
}

// Text renders the result as plain text for a prompt.
func (r *Result) Text() string {
	var b strings.Builder
	name := r.Table.Name
	if name == "" {
		name = Handle(r.Table)
	}
	fmt.Fprintf(&b, "Table %s (document %s)\n", name, r.Table.DocID)
	b.WriteString(strings.Join(r.Columns, " | "))
	b.WriteByte('\n')
	if len(r.Rows) == 0 {
		b.WriteString("(no matching rows)\n")
	}
	for _, row := range r.Rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteByte('\n')
	}
	if r.Truncated {
		fmt.Fprintf(&b, "(showing %d of %d rows)\n", len(r.Rows), r.TotalRows)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Handle returns the stable name a query may use for a table.
func Handle(ref core.TableRef) string {
	return fmt.Sprintf("%s#%d", ref.DocID, ref.Index)
}

// ParseQuery decodes a planner reply into a Query.
func ParseQuery(reply string) (*Query, error) {
	var q Query
	if err := ai.DecodeJSON(reply, &q); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return &q, nil
}

// Describe renders the tables for a planner prompt: handle, name, size,
// columns and up to sampleRows rows each.
func Describe(tables []core.Table, sampleRows int) string {
	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Table %s", Handle(t.Ref()))
		if t.Name != "" {
			fmt.Fprintf(&b, " %q", t.Name)
		}
		fmt.Fprintf(&b, " from document %s, %d rows\n", t.DocID, len(t.Rows))
		fmt.Fprintf(&b, "Columns: %s\n", strings.Join(t.Columns, " | "))
		n := min(sampleRows, len(t.Rows))
		if n > 0 {
			b.WriteString("Sample rows:\n")
			for _, row := range t.Rows[:n] {
				b.WriteString(strings.Join(row, " | "))
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// Execute evaluates q against the matching table in tables.
//
// Column names are matched case-insensitively and any unknown column is an
// error. Comparisons are numeric when both sides parse as numbers (ignoring
// "%" and thousands separators) and case-insensitive text otherwise.
// The output is capped at limits.MaxRows and Truncated reports whether rows
// were dropped.
func Execute(ctx context.Context, tables []core.Table, q *Query, limits Limits) (*Result, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = DefaultMaxRows
	}
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	t, err := pickTable(tables, q.Table)
	if err != nil {
		return nil, err
	}
	plan, err := compile(t, q)
	if err != nil {
		return nil, err
	}

	var matched [][]string
	for i, row := range t.Rows {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if plan.matches(row) {
			matched = append(matched, row)
		}
	}

	var columns []string
	var rows [][]string
	if q.Aggregate != nil {
		columns, rows = plan.aggregate(t.Columns, matched)
	} else {
		columns, rows = plan.project(t.Columns, matched)
	}

	if q.SortBy != "" {
		idx, err := columnIndex(columns, q.SortBy)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(rows, func(a, b []string) int {
			c := compareCells(a[idx], b[idx])
			if q.Descending {
				return -c
			}
			return c
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := limits.MaxRows
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	res := &Result{
		Table:     t.Ref(),
		Columns:   columns,
		TotalRows: len(rows),
	}
	if len(rows) > limit {
		rows = rows[:limit]
		res.Truncated = true
	}
	if rows == nil {
		rows = [][]string{}
	}
	res.Rows = rows
	return res, nil
}

func pickTable(tables []core.Table, name string) (*core.Table, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	name = strings.TrimSpace(name)
	if name == "" {
		if len(tables) == 1 {
			return &tables[0], nil
		}
		return nil, ErrAmbiguousTable
	}

	for i := range tables {
		if strings.EqualFold(Handle(tables[i].Ref()), name) {
			return &tables[i], nil
		}
	}
	var found *core.Table
	for i := range tables {
		if strings.EqualFold(tables[i].Name, name) {
			if found != nil {
				return nil, fmt.Errorf("%w: %q names several tables", ErrAmbiguousTable, name)
			}
			found = &tables[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return found, nil
}

type compiledFilter struct {
	col   int
	op    Op
	value string
}

type plan struct {
	filters []compiledFilter
	selects []int
	groupBy int
	aggFunc AggFunc
	aggCol  int
}

func compile(t *core.Table, q *Query) (*plan, error) {
	p := &plan{groupBy: -1, aggCol: -1}

	for _, f := range q.Filters {
		idx, err := columnIndex(t.Columns, f.Column)
		if err != nil {
			return nil, err
		}
		op := Op(strings.ToLower(string(f.Op)))
		switch op {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedOp, f.Op)
		}
		p.filters = append(p.filters, compiledFilter{col: idx, op: op, value: string(f.Value)})
	}

	for _, name := range q.Select {
		idx, err := columnIndex(t.Columns, name)
		if err != nil {
			return nil, err
		}
		p.selects = append(p.selects, idx)
	}

	if q.GroupBy != "" {
		if q.Aggregate == nil {
			return nil, fmt.Errorf("%w: group_by requires an aggregate", ErrInvalidQuery)
		}
		idx, err := columnIndex(t.Columns, q.GroupBy)
		if err != nil {
			return nil, err
		}
		p.groupBy = idx
	}

	if q.Aggregate != nil {
		p.aggFunc = AggFunc(strings.ToLower(string(q.Aggregate.Func)))
		switch p.aggFunc {
		case AggCount:
		case AggSum, AggMean, AggMin, AggMax:
			if q.Aggregate.Column == "" {
				return nil, fmt.Errorf("%w: %s needs a column", ErrInvalidQuery, p.aggFunc)
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedAggregate, q.Aggregate.Func)
		}
		if q.Aggregate.Column != "" {
			idx, err := columnIndex(t.Columns, q.Aggregate.Column)
			if err != nil {
				return nil, err
			}
			p.aggCol = idx
		}
	}
	return p, nil
}

func (p *plan) matches(row []string) bool {
	for _, f := range p.filters {
		if !evaluate(row[f.col], f.op, f.value) {
			return false
		}
	}
	return true
}

func (p *plan) project(columns []string, rows [][]string) ([]string, [][]string) {
	if len(p.selects) == 0 {
		out := make([][]string, len(rows))
		for i, r := range rows {
			out[i] = slices.Clone(r)
		}
		return slices.Clone(columns), out
	}

	names := make([]string, len(p.selects))
	for i, idx := range p.selects {
		names[i] = columns[idx]
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		projected := make([]string, len(p.selects))
		for j, idx := range p.selects {
			projected[j] = r[idx]
		}
		out[i] = projected
	}
	return names, out
}

func (p *plan) aggregate(columns []string, rows [][]string) ([]string, [][]string) {
	label := string(p.aggFunc)
	if p.aggCol >= 0 {
		label = fmt.Sprintf("%s(%s)", p.aggFunc, columns[p.aggCol])
	}

	if p.groupBy < 0 {
		return []string{label}, [][]string{{p.reduce(rows)}}
	}

	var order []string
	groups := make(map[string][][]string)
	for _, r := range rows {
		key := r[p.groupBy]
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([][]string, 0, len(order))
	for _, key := range order {
		out = append(out, []string{key, p.reduce(groups[key])})
	}
	return []string{columns[p.groupBy], label}, out
}

// reduce applies the aggregate to rows. Non-numeric cells are ignored by the
// numeric functions; with no numeric cells the result is empty.
func (p *plan) reduce(rows [][]string) string {
	if p.aggFunc == AggCount {
		if p.aggCol < 0 {
			return strconv.Itoa(len(rows))
		}
		n := 0
		for _, r := range rows {
			if strings.TrimSpace(r[p.aggCol]) != "" {
				n++
			}
		}
		return strconv.Itoa(n)
	}

	var values []float64
	for _, r := range rows {
		if v, ok := parseNumber(r[p.aggCol]); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return ""
	}

	var v float64
	switch p.aggFunc {
	case AggSum, AggMean:
		for _, x := range values {
			v += x
		}
		if p.aggFunc == AggMean {
			v /= float64(len(values))
		}
	case AggMin:
		v = slices.Min(values)
	case AggMax:
		v = slices.Max(values)
	}
	return formatNumber(v)
}

func columnIndex(columns []string, name string) (int, error) {
	want := strings.TrimSpace(name)
	for i, c := range columns {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

func evaluate(cell string, op Op, value string) bool {
	if op == OpContains {
		return strings.Contains(strings.ToLower(cell), strings.ToLower(value))
	}
	_, cellNum := parseNumber(cell)
	_, valueNum := parseNumber(value)
	if cellNum != valueNum && op != OpEq && op != OpNe {
		// A number and a word have no order.
		return false
	}
	c := compareCells(cell, value)
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// compareCells orders two cells numerically when both are numbers and by
// case-insensitive text otherwise.
func compareCells(a, b string) int {
	x, aok := parseNumber(a)
	y, bok := parseNumber(b)
	if aok && bok {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b)))
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
