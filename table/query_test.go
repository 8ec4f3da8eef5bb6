package table

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trialTables() []core.Table {
	return []core.Table{
		{
			Name:    "Outcomes",
			DocID:   "trial.xlsx",
			Index:   0,
			Columns: []string{"Arm", "Patients", "Response Rate", "Site"},
			Rows: [][]string{
				{"Placebo", "120", "12%", "Boston"},
				{"Drug A", "118", "34%", "Boston"},
				{"Drug A", "1,204", "31%", "Denver"},
				{"Drug B", "97", "n/a", "Denver"},
			},
		},
		{
			Name:    "Demographics",
			DocID:   "trial.xlsx",
			Index:   1,
			Columns: []string{"Group", "Mean Age"},
			Rows:    [][]string{{"All", "54.2"}},
		},
	}
}

func TestExecute_FilterAndSelect(t *testing.T) {
	q := &Query{
		Table:   "outcomes",
		Filters: []Filter{{Column: "arm", Op: OpEq, Value: "drug a"}},
		Select:  []string{"Site", "Patients"},
	}

	res, err := Execute(context.Background(), trialTables(), q, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"Site", "Patients"}, res.Columns)
	assert.Equal(t, [][]string{{"Boston", "118"}, {"Denver", "1,204"}}, res.Rows)
	assert.Equal(t, 2, res.TotalRows)
	assert.False(t, res.Truncated)
	assert.Equal(t, "Outcomes", res.Table.Name)
}

func TestExecute_NumericComparison(t *testing.T) {
	tests := []struct {
		name  string
		op    Op
		value Literal
		want  int
	}{
		{name: "gt strips separators", op: OpGt, value: "200", want: 1},
		{name: "gte", op: OpGte, value: "118", want: 3},
		{name: "lt", op: OpLt, value: "100", want: 1},
		{name: "lte", op: OpLte, value: "120", want: 3},
		{name: "ne", op: OpNe, value: "97", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &Query{
				Table:   "Outcomes",
				Filters: []Filter{{Column: "Patients", Op: tt.op, Value: tt.value}},
			}
			res, err := Execute(context.Background(), trialTables(), q, DefaultLimits())
			require.NoError(t, err)
			assert.Len(t, res.Rows, tt.want)
		})
	}
}

func TestExecute_PercentAndContains(t *testing.T) {
	q := &Query{
		Table: "Outcomes",
		Filters: []Filter{
			{Column: "Response Rate", Op: OpGte, Value: "30"},
			{Column: "Site", Op: OpContains, Value: "DEN"},
		},
	}
	res, err := Execute(context.Background(), trialTables(), q, DefaultLimits())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "31%", res.Rows[0][2])
}

func TestExecute_Aggregates(t *testing.T) {
	tests := []struct {
		name string
		agg  Aggregate
		want string
	}{
		{name: "count rows", agg: Aggregate{Func: AggCount}, want: "4"},
		{name: "count column", agg: Aggregate{Func: AggCount, Column: "Site"}, want: "4"},
		{name: "sum", agg: Aggregate{Func: AggSum, Column: "Patients"}, want: "1539"},
		{name: "mean skips non-numeric", agg: Aggregate{Func: AggMean, Column: "Response Rate"}, want: "25.666667"},
		{name: "min", agg: Aggregate{Func: AggMin, Column: "Patients"}, want: "97"},
		{name: "max", agg: Aggregate{Func: AggMax, Column: "Patients"}, want: "1204"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := tt.agg
			q := &Query{Table: "Outcomes", Aggregate: &agg}
			res, err := Execute(context.Background(), trialTables(), q, DefaultLimits())
			require.NoError(t, err)
			require.Len(t, res.Rows, 1)
			assert.Equal(t, tt.want, res.Rows[0][0])
		})
	}
}

func TestExecute_GroupBySorted(t *testing.T) {
	q := &Query{
		Table:      "Outcomes",
		GroupBy:    "Arm",
		Aggregate:  &Aggregate{Func: AggSum, Column: "Patients"},
		SortBy:     "sum(Patients)",
		Descending: true,
	}
	res, err := Execute(context.Background(), trialTables(), q, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"Arm", "sum(Patients)"}, res.Columns)
	assert.Equal(t, [][]string{
		{"Drug A", "1322"},
		{"Placebo", "120"},
		{"Drug B", "97"},
	}, res.Rows)
}

func TestExecute_RowCap(t *testing.T) {
	big := core.Table{DocID: "d", Columns: []string{"n"}}
	for i := range 120 {
		big.Rows = append(big.Rows, []string{fmt.Sprint(i)})
	}

	res, err := Execute(context.Background(), []core.Table{big}, &Query{}, Limits{})
	require.NoError(t, err)
	assert.Len(t, res.Rows, DefaultMaxRows)
	assert.Equal(t, 120, res.TotalRows)
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Text(), "(showing 50 of 120 rows)")

	res, err = Execute(context.Background(), []core.Table{big}, &Query{Limit: 5, SortBy: "n", Descending: true}, Limits{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"119"}, {"118"}, {"117"}, {"116"}, {"115"}}, res.Rows)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		tables  []core.Table
		query   *Query
		wantErr error
	}{
		{name: "nil query", tables: trialTables(), query: nil, wantErr: ErrInvalidQuery},
		{name: "no tables", tables: nil, query: &Query{}, wantErr: ErrNoTables},
		{name: "ambiguous", tables: trialTables(), query: &Query{}, wantErr: ErrAmbiguousTable},
		{name: "missing table", tables: trialTables(), query: &Query{Table: "Adverse"}, wantErr: ErrTableNotFound},
		{
			name:    "unknown filter column",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", Filters: []Filter{{Column: "Dose", Op: OpEq, Value: "1"}}},
			wantErr: ErrUnknownColumn,
		},
		{
			name:    "unknown select column",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", Select: []string{"Dose"}},
			wantErr: ErrUnknownColumn,
		},
		{
			name:    "bad operator",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", Filters: []Filter{{Column: "Arm", Op: "like", Value: "x"}}},
			wantErr: ErrUnsupportedOp,
		},
		{
			name:    "bad aggregate",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", Aggregate: &Aggregate{Func: "median", Column: "Patients"}},
			wantErr: ErrUnsupportedAggregate,
		},
		{
			name:    "group without aggregate",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", GroupBy: "Arm"},
			wantErr: ErrInvalidQuery,
		},
		{
			name:    "sum without column",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", Aggregate: &Aggregate{Func: AggSum}},
			wantErr: ErrInvalidQuery,
		},
		{
			name:    "unknown sort column",
			tables:  trialTables(),
			query:   &Query{Table: "Outcomes", SortBy: "Dose"},
			wantErr: ErrUnknownColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Execute(context.Background(), tt.tables, tt.query, DefaultLimits())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, trialTables(), &Query{Table: "Outcomes"}, DefaultLimits())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_TableByHandle(t *testing.T) {
	res, err := Execute(context.Background(), trialTables(), &Query{Table: "trial.xlsx#1"}, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "Demographics", res.Table.Name)
	assert.Equal(t, [][]string{{"All", "54.2"}}, res.Rows)
}

func TestParseQuery(t *testing.T) {
	reply := "```json\n" + `{"table": "Outcomes", "filters": [{"column": "Patients", "op": "gt", "value": 100}],
"aggregate": {"func": "count"}}` + "\n```"

	q, err := ParseQuery(reply)
	require.NoError(t, err)
	assert.Equal(t, "Outcomes", q.Table)
	require.Len(t, q.Filters, 1)
	assert.Equal(t, Literal("100"), q.Filters[0].Value)
	require.NotNil(t, q.Aggregate)
	assert.Equal(t, AggCount, q.Aggregate.Func)

	_, err = ParseQuery("I cannot answer that")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestLiteral_Unmarshal(t *testing.T) {
	var f Filter
	require.NoError(t, json.Unmarshal([]byte(`{"column":"a","op":"eq","value":"x y"}`), &f))
	assert.Equal(t, Literal("x y"), f.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"column":"a","op":"eq","value":true}`), &f))
	assert.Equal(t, Literal("true"), f.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"column":"a","op":"eq","value":null}`), &f))
	assert.Equal(t, Literal(""), f.Value)
}

func TestDescribe(t *testing.T) {
	text := Describe(trialTables(), 2)

	assert.Contains(t, text, `Table trial.xlsx#0 "Outcomes" from document trial.xlsx, 4 rows`)
	assert.Contains(t, text, "Columns: Arm | Patients | Response Rate | Site")
	assert.Contains(t, text, "Drug A | 118 | 34% | Boston")
	assert.NotContains(t, text, "Denver", "only two sample rows are rendered")
	assert.Contains(t, text, "Table trial.xlsx#1")
}

func TestResult_Text(t *testing.T) {
	res := &Result{
		Table:   core.TableRef{DocID: "d", Index: 0, Name: "T"},
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}},
	}
	assert.Equal(t, "Table T (document d)\na | b\n1 | 2", res.Text())

	empty := &Result{Table: core.TableRef{DocID: "d"}, Columns: []string{"a"}}
	assert.True(t, strings.HasSuffix(empty.Text(), "(no matching rows)"))
}
