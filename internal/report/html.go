package report

import (
	"fmt"
	"html/template"
	"io"

	"gastos/internal/core"
)

var funcs = template.FuncMap{
	"money": func(x float64) string { return "$" + core.FormatAmount(x) },
	"esdate": func(d core.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.Format("2/1/2006")
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(funcs).Parse(`<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: Helvetica, sans-serif; color: #333; }
      h1 { text-align: center; color: #4F46E5; }
      .summary-table, .details-table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
      .summary-table td { padding: 10px; font-size: 1.2em; border-bottom: 1px solid #eee; }
      .summary-table .label { font-weight: bold; }
      .details-table th, .details-table td { border: 1px solid #ddd; padding: 8px; text-align: left; }
      .details-table th { background-color: #f2f2f2; font-weight: bold; }
      .section-title { font-size: 1.5em; color: #4F46E5; border-bottom: 2px solid #4F46E5; padding-bottom: 5px; margin-top: 30px; }
    </style>
  </head>
  <body>
    <h1>Reporte de Gastos</h1>
    <table class="summary-table">
      <tr><td class="label">Total Gastos:</td><td>{{money .Report.TotalSpent}}</td></tr>
      <tr><td class="label">Promedio por Día:</td><td>{{money .Report.AveragePerPeriod}}</td></tr>
      <tr><td class="label">Período:</td><td>Últimos {{.Report.PeriodDays}} días</td></tr>
    </table>

    <h2 class="section-title">Gastos por Categoría</h2>
    <table class="details-table">
      <thead><tr><th>Categoría</th><th>Monto</th><th>%</th></tr></thead>
      <tbody>
      {{- range .Categories}}
        <tr><td>{{.Label}}</td><td>{{money .Amount}}</td><td>{{printf "%.1f" .Share}}</td></tr>
      {{- end}}
      </tbody>
    </table>

    <h2 class="section-title">Detalle de Gastos</h2>
    <table class="details-table">
      <thead><tr><th>Descripción</th><th>Fecha</th><th>Pagado por</th><th>Monto</th></tr></thead>
      <tbody>
      {{- range .Report.Expenses}}
        <tr><td>{{.Description}}</td><td>{{esdate .Date}}</td><td>{{.PaidBy}}</td><td>{{money .Amount}}</td></tr>
      {{- end}}
      </tbody>
    </table>
  </body>
</html>
`))

// RenderHTML writes the printable report document.
func RenderHTML(w io.Writer, r Report) error {
	data := struct {
		Report     Report
		Categories []CategoryTotal
	}{r, r.CategoryTotals()}
	if err := reportTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
