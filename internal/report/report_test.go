package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"gastos/internal/core"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		desc string
		want Category
	}{
		{"Cena Restaurante", Restaurants},
		{"cena con amigos", Restaurants},
		{"RESTAURANTE italiano", Restaurants},
		{"Supermercado", Groceries},
		{"Uber", Transport},
		{"transporte público", Transport},
		{"Café", Coffee},
		{"cafe con leche", Coffee},
		{"CAFÉ", Coffee},
		{"Cine", Other},
		{"", Other},
		{"cena y uber", Restaurants}, // first rule wins
	}
	for _, tc := range cases {
		if got := Classify(tc.desc); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.desc, got, tc.want)
		}
	}
}

func TestCategoryLabels(t *testing.T) {
	if Groceries.Label() != "Comida" || Coffee.Label() != "Café" {
		t.Fatal("unexpected labels")
	}
	if Category("bogus").Label() != "Otros" {
		t.Fatal("unknown categories render as Otros")
	}
}

func sample() []core.Expense {
	return []core.Expense{
		{ID: "1", Description: "Cena Restaurante", Amount: 150, PaidBy: "Juan", Date: core.NewDate(2025, 10, 15)},
		{ID: "2", Description: "Supermercado", Amount: 280, PaidBy: "María", Date: core.NewDate(2025, 10, 14)},
		{ID: "3", Description: "Uber", Amount: 45, PaidBy: "Pedro", Date: core.NewDate(2025, 10, 13)},
		{ID: "4", Description: "Café", Amount: 25, PaidBy: "Juan", Date: core.NewDate(2025, 10, 12)},
	}
}

func TestBuild(t *testing.T) {
	r := Build(sample(), 15)
	if r.TotalSpent != 500 {
		t.Fatalf("total = %v", r.TotalSpent)
	}
	if math.Abs(r.AveragePerPeriod-33.3333) > 0.001 {
		t.Fatalf("average = %v", r.AveragePerPeriod)
	}
	want := map[Category]float64{Restaurants: 150, Groceries: 280, Transport: 45, Coffee: 25}
	for c, amount := range want {
		if r.AmountByCategory[c] != amount {
			t.Errorf("%s = %v, want %v", c, r.AmountByCategory[c], amount)
		}
	}
	if _, ok := r.AmountByCategory[Other]; ok {
		t.Error("no expense should fall in Other")
	}

	totals := r.CategoryTotals()
	if len(totals) != 4 || totals[0].Category != Restaurants || totals[1].Share != 56 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil, 0)
	if r.TotalSpent != 0 || r.AveragePerPeriod != 0 || r.PeriodDays != DefaultPeriodDays {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Expenses == nil {
		t.Fatal("expenses should encode as an empty list")
	}
}

func TestRenderHTML(t *testing.T) {
	exps := sample()
	exps = append(exps, core.Expense{ID: "5", Description: "<script>x</script>", Amount: 1, PaidBy: "Pedro", Date: core.NewDate(2025, 1, 2)})
	var buf bytes.Buffer
	if err := RenderHTML(&buf, Build(exps, 15)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Reporte de Gastos",
		"$501.00",
		"Comida",
		"15/10/2025",
		"2/1/2025",
		"&lt;script&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(out, "<script>x") {
		t.Error("description was not escaped")
	}
}
