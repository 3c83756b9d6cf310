package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

func TestAnalyze_FixedLOD(t *testing.T) {
	a := Analyze("{FIXED [Customer ID] : SUM([Sales])}")

	assert.Equal(t, twbmeta.CalcLODFixed, a.CalculationType)
	assert.Equal(t, "FIXED", a.LODType)
	assert.Equal(t, []string{"Customer ID"}, a.LODDimensions)
	assert.Equal(t, "SUM([Sales])", a.LODExpression)
	assert.Equal(t, []string{"SUM"}, a.AggregationsUsed)
	assert.Equal(t, []string{"Customer ID", "Sales"}, a.ReferencedFields)
	assert.Equal(t, 40, a.ComplexityScore)
}

func TestAnalyze_LODVariants(t *testing.T) {
	cases := []struct {
		name     string
		formula  string
		wantType twbmeta.CalculationType
		wantKind string
		wantDims []string
	}{
		{
			name:     "include",
			formula:  "{INCLUDE [Region], [Category] : AVG([Profit])}",
			wantType: twbmeta.CalcLODInclude,
			wantKind: "INCLUDE",
			wantDims: []string{"Region", "Category"},
		},
		{
			name:     "exclude",
			formula:  "{EXCLUDE [Order Date] : SUM([Sales])}",
			wantType: twbmeta.CalcLODExclude,
			wantKind: "EXCLUDE",
			wantDims: []string{"Order Date"},
		},
		{
			name:     "lowercase keyword",
			formula:  "{fixed [Segment] : MIN([Discount])}",
			wantType: twbmeta.CalcLODFixed,
			wantKind: "FIXED",
			wantDims: []string{"Segment"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Analyze(tc.formula)
			assert.Equal(t, tc.wantType, a.CalculationType)
			assert.Equal(t, tc.wantKind, a.LODType)
			assert.Equal(t, tc.wantDims, a.LODDimensions)
		})
	}
}

func TestAnalyze_EmptyDimensionsNotLOD(t *testing.T) {
	// A brace wrapper without dimensions is not a well-formed LOD
	// expression; classification falls through to the aggregation.
	a := Analyze("{FIXED : SUM([Sales])}")

	assert.Equal(t, twbmeta.CalcAggregate, a.CalculationType)
	assert.Empty(t, a.LODType)
	assert.Equal(t, 10, a.ComplexityScore)
}

func TestAnalyze_LODAfterTableScopedBlock(t *testing.T) {
	// A table-scoped brace block before the wrapper must not mask it.
	a := Analyze("{SUM([Sales])} / {FIXED [Region] : SUM([Sales])}")

	assert.Equal(t, twbmeta.CalcLODFixed, a.CalculationType)
	assert.Equal(t, "FIXED", a.LODType)
	assert.Equal(t, []string{"Region"}, a.LODDimensions)
	assert.Equal(t, "SUM([Sales])", a.LODExpression)
	assert.Equal(t, 40, a.ComplexityScore)
}

func TestAnalyze_TableCalc(t *testing.T) {
	a := Analyze("RANK(SUM([Sales]))")

	assert.Equal(t, twbmeta.CalcTableCalc, a.CalculationType)
	assert.Equal(t, "RANK", a.TableCalcType)
	assert.Equal(t, []string{"RANK", "SUM"}, a.FunctionsUsed)
	assert.Equal(t, []string{"SUM"}, a.AggregationsUsed)
	assert.Equal(t, 50, a.ComplexityScore)
}

func TestAnalyze_Aggregate(t *testing.T) {
	a := Analyze("SUM([Profit]) / SUM([Sales])")

	assert.Equal(t, twbmeta.CalcAggregate, a.CalculationType)
	assert.Equal(t, []string{"SUM"}, a.AggregationsUsed)
	assert.Equal(t, []string{"Profit", "Sales"}, a.ReferencedFields)
	assert.Equal(t, 10, a.ComplexityScore)
}

func TestAnalyze_Simple(t *testing.T) {
	a := Analyze("[Price] * [Quantity]")

	assert.Equal(t, twbmeta.CalcSimple, a.CalculationType)
	assert.Empty(t, a.FunctionsUsed)
	assert.Equal(t, []string{"Price", "Quantity"}, a.ReferencedFields)
	assert.Zero(t, a.ComplexityScore)
}

func TestAnalyze_ConditionalsScoreCapped(t *testing.T) {
	a := Analyze("IF [A] > 0 THEN 1 ELSEIF [A] < 0 THEN 2 ELSE 3 END")
	assert.Equal(t, twbmeta.CalcSimple, a.CalculationType)
	assert.Equal(t, 10, a.ComplexityScore)

	capped := Analyze("IF [A] > 0 THEN IIF([B] > 0, 1, 0) ELSEIF [A] < 0 THEN IIF([B] < 0, 1, 0) ELSEIF [A] = 1 THEN 1 ELSE 0 END")
	assert.Equal(t, 20, capped.ComplexityScore)
}

func TestAnalyze_ScoreClampedAtMaximum(t *testing.T) {
	a := Analyze("{FIXED [A] : IF [B] > 0 THEN WINDOW_SUM(SUM(IIF([C] > 0, 1, 0))) ELSEIF [B] < 0 THEN IIF([D] > 0, 1, 0) ELSE 0 END}")

	assert.Equal(t, twbmeta.MaxComplexityScore, a.ComplexityScore)
}

func TestAnalyze_ParameterReferences(t *testing.T) {
	a := Analyze("[Sales] * [Parameters].[Growth Rate]")

	assert.Equal(t, []string{"Sales"}, a.ReferencedFields)
	assert.Equal(t, []string{"Growth Rate"}, a.ReferencedParameters)
}

func TestAnalyze_DatasourceQualifierNotAField(t *testing.T) {
	a := Analyze("SUM([federated.0abc].[Sales])")

	assert.Equal(t, []string{"Sales"}, a.ReferencedFields)
	assert.Empty(t, a.ReferencedParameters)
}

func TestAnalyze_QuotedBracketsIgnored(t *testing.T) {
	a := Analyze("IF [Region] = '[West]' THEN 1 ELSE 0 END")

	require.Equal(t, twbmeta.CalcSimple, a.CalculationType)
	assert.Equal(t, []string{"Region"}, a.ReferencedFields)
}

func TestAnalyze_Unbalanced(t *testing.T) {
	cases := map[string]string{
		"missing paren":   "SUM([Sales]",
		"missing bracket": "[Sales * 2",
		"stray close":     "SUM([Sales]))",
		"open brace":      "{FIXED [A] : SUM([Sales])",
		"unclosed quote":  "[Region] = 'West",
	}

	for name, formula := range cases {
		t.Run(name, func(t *testing.T) {
			a := Analyze(formula)
			assert.Equal(t, twbmeta.CalcUnknown, a.CalculationType)
		})
	}
}

func TestAnalyze_TokensDedupedInFirstAppearanceOrder(t *testing.T) {
	a := Analyze("SUM([Sales]) + SUM([Sales]) + AVG([Profit]) + [Sales]")

	assert.Equal(t, []string{"Sales", "Profit"}, a.ReferencedFields)
	assert.Equal(t, []string{"SUM", "AVG"}, a.FunctionsUsed)
	assert.Equal(t, []string{"SUM", "AVG"}, a.AggregationsUsed)
}

func TestAnalyze_Deterministic(t *testing.T) {
	const formula = "{FIXED [Customer ID], [Region] : SUM([Sales]) - SUM([Returns])}"

	first := Analyze(formula)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Analyze(formula))
	}
}
