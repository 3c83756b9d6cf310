package parser

import "testing"

func TestCleanFieldName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Sales", "Sales"},
		{"bracketed", "[Sales]", "Sales"},
		{"multipart", "[federated.0abc].[Sales]", "Sales"},
		{"shelf notation none", "none:Category:nk", "Category"},
		{"shelf notation aggregated", "sum:Sales:qk", "Sales"},
		{"multipart with shelf notation", "[federated.0abc].[none:Region:nk]", "Region"},
		{"bare federated qualifier", "federated.0abc123.Sales", "Sales"},
		{"long qualifier", "averyverylongqualifier.Sales", "Sales"},
		{"unknown prefix keeps head", "custom:Sales", "custom"},
		{"calculation prefix", "[calculation:Profit Ratio:qk]", "Profit Ratio"},
		{"date part prefix", "year:Order Date:ok", "Order Date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanFieldName(tc.input); got != tc.want {
				t.Errorf("CleanFieldName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanFormula(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			"strips federated qualifier",
			"SUM([federated.0abc].[Sales])",
			"SUM([Sales])",
		},
		{
			"cleans shelf notation inside brackets",
			"[none:Region:nk] = 'West'",
			"[Region] = 'West'",
		},
		{
			"plain formula unchanged",
			"SUM([Profit]) / SUM([Sales])",
			"SUM([Profit]) / SUM([Sales])",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanFormula(tc.input); got != tc.want {
				t.Errorf("CleanFormula(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
