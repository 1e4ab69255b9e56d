// Package report prints the dashboard views as text tables.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/model"
)

// View names accepted by Render.
const (
	ViewAll        = "all"
	ViewSummary    = "summary"
	ViewRanking    = "ranking"
	ViewRegion     = "region"
	ViewPerCapita  = "per-capita"
	ViewTimeSeries = "timeseries"
	ViewGeo        = "geo"
	ViewProcedures = "procedures"
	ViewSurgeries  = "surgeries"
	ViewCoverage   = "coverage"
	ViewRecords    = "records"
)

// Views lists the views in the order ViewAll prints them.
var Views = []string{
	ViewSummary, ViewRanking, ViewRegion, ViewPerCapita, ViewTimeSeries,
	ViewGeo, ViewProcedures, ViewSurgeries, ViewCoverage, ViewRecords,
}

var ErrUnknownView = errors.New("unknown view")

// ParseView validates a view name.
func ParseView(s string) (string, error) {
	if s == ViewAll {
		return s, nil
	}
	for _, v := range Views {
		if v == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownView, s, ViewAll, strings.Join(Views, ", "))
}

// Report writes views over one dataset.
type Report struct {
	w        io.Writer
	fmt      Formatter
	settings aggregate.Settings
}

// New returns a Report writing to w.
func New(w io.Writer, settings aggregate.Settings) *Report {
	return &Report{w: w, fmt: NewFormatter(), settings: settings}
}

// Render filters ds by sel and prints view. An empty result prints the
// notice instead of any table. Views the source cannot support print their
// notice and do not fail the report.
func (r *Report) Render(ds *model.Dataset, sel aggregate.Selection, view string) error {
	view, err := ParseView(view)
	if err != nil {
		return err
	}

	var records []model.Record
	var cols model.ColumnSet
	if ds != nil {
		records, cols = ds.Records, ds.Columns
	}
	filtered := aggregate.ApplyFilters(records, sel)
	if notice := aggregate.EmptyNotice(len(records), len(filtered)); notice != "" {
		fmt.Fprintln(r.w, notice)
		return nil
	}

	views := []string{view}
	if view == ViewAll {
		views = Views
	}
	for _, v := range views {
		err := r.render(v, cols, filtered)
		if errors.Is(err, aggregate.ErrUnavailable) {
			fmt.Fprintf(r.w, "%s\n\n", err)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) render(view string, cols model.ColumnSet, records []model.Record) error {
	switch view {
	case ViewSummary:
		return r.summary(records)
	case ViewRanking:
		return r.ranking("Top municípios por valor total", cols, records, aggregate.DimMunicipality)
	case ViewRegion:
		if err := r.ranking("Valor total por UF", cols, records, aggregate.DimState); err != nil {
			return err
		}
		return r.ranking("Valor total por região", cols, records, aggregate.DimRegion)
	case ViewPerCapita:
		return r.perCapita(cols, records)
	case ViewTimeSeries:
		return r.timeSeries(records)
	case ViewGeo:
		return r.geo(cols, records)
	case ViewProcedures:
		return r.categories("Valor por grupo de procedimento", cols, records, "procedures", r.settings.Procedures)
	case ViewSurgeries:
		return r.categories("Valor por subgrupo cirúrgico", cols, records, "surgeries", r.settings.Surgeries)
	case ViewCoverage:
		return r.coverage(cols, records)
	case ViewRecords:
		return r.records(cols, records)
	}
	return fmt.Errorf("%w: %q", ErrUnknownView, view)
}

func (r *Report) newTable(title string, header []string) *tablewriter.Table {
	fmt.Fprintln(r.w, title)
	table := tablewriter.NewWriter(r.w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func (r *Report) flush(table *tablewriter.Table) {
	table.Render()
	fmt.Fprintln(r.w)
}

func (r *Report) summary(records []model.Record) error {
	s := aggregate.Summarize(records)
	table := r.newTable("Resumo", []string{"Indicador", "Valor"})
	table.Append([]string{"Valor total", r.fmt.Money(s.TotalValue)})
	table.Append([]string{"Quantidade de AIH", r.fmt.Int(s.TotalQuantity)})
	table.Append([]string{"Registros", r.fmt.Int(int64(s.Records))})
	table.Append([]string{"Período", fmt.Sprintf("%d a %d", s.FirstYear, s.LastYear)})
	r.flush(table)
	return nil
}

func (r *Report) entryTable(title, labelHeader, valueHeader string, entries []aggregate.Entry, format func(aggregate.Entry) string) {
	table := r.newTable(title, []string{"#", labelHeader, valueHeader})
	for i, e := range entries {
		table.Append([]string{strconv.Itoa(i + 1), e.Label, format(e)})
	}
	r.flush(table)
}

func (r *Report) money(e aggregate.Entry) string { return r.fmt.Money(e.Value) }

func (r *Report) ranking(title string, cols model.ColumnSet, records []model.Record, dim aggregate.Dimension) error {
	entries, err := aggregate.Ranking(cols, records, dim, aggregate.MeasureValue, aggregate.OpSum, r.settings.TopN)
	if err != nil {
		return err
	}
	r.entryTable(title, dimensionHeader(dim), "Valor total", entries, r.money)
	return nil
}

func (r *Report) perCapita(cols model.ColumnSet, records []model.Record) error {
	entries, err := aggregate.PerCapitaRanking(cols, records, aggregate.DimMunicipality, r.settings.TopN)
	if err != nil {
		return err
	}
	r.entryTable("Valor per capita por município", "Município", "R$ por habitante", entries, r.money)

	rate, ok, err := aggregate.PopulationRateView(cols, records)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(r.w, "Taxa: %s AIH por mil habitantes (%s AIH, %s habitantes)\n\n",
			r.fmt.Decimal(rate.PerThousand, 2), r.fmt.Int(int64(rate.Events)), r.fmt.Int(rate.Population))
	}
	return nil
}

func (r *Report) timeSeries(records []model.Record) error {
	table := r.newTable("Evolução mensal", []string{"Mês", "Valor total"})
	for _, p := range aggregate.TimeSeries(records) {
		table.Append([]string{monthLabel(p.Year, p.Month), r.fmt.Money(p.Value)})
	}
	r.flush(table)
	return nil
}

func (r *Report) geo(cols model.ColumnSet, records []model.Record) error {
	points, err := aggregate.Geo(cols, records, r.settings.Geo)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintf(r.w, "%s\n\n", aggregate.NoticeNoGeoData)
		return nil
	}
	table := r.newTable("Distribuição geográfica", []string{"Município", "Latitude", "Longitude", "Valor total", "Raio"})
	shown := points
	if n := r.settings.TopN; n > 0 && len(shown) > n {
		shown = shown[:n]
	}
	for _, gp := range shown {
		table.Append([]string{
			gp.Label,
			r.fmt.Float(gp.Latitude, 4),
			r.fmt.Float(gp.Longitude, 4),
			r.fmt.Money(gp.Value),
			r.fmt.Float(gp.Radius, 1),
		})
	}
	r.flush(table)
	if vp, ok := aggregate.RecordViewport(records); ok {
		fmt.Fprintf(r.w, "Centro do mapa: %s, %s (zoom %d)\n\n",
			r.fmt.Float(vp.CenterLat, 4), r.fmt.Float(vp.CenterLon, 4), vp.Zoom)
	}
	return nil
}

func (r *Report) categories(title string, cols model.ColumnSet, records []model.Record, view string, cats []model.Category) error {
	entries, err := aggregate.Categories(cols, records, view, cats)
	if err != nil {
		return err
	}
	r.entryTable(title, "Grupo", "Valor", entries, r.money)
	return nil
}

func (r *Report) coverage(cols model.ColumnSet, records []model.Record) error {
	cov, err := aggregate.CoverageView(cols, records, r.settings.Procedures)
	if err != nil {
		return err
	}
	table := r.newTable("Cobertura dos grupos de procedimento", []string{"Indicador", "Valor"})
	table.Append([]string{"Valor total", r.fmt.Money(cov.Total)})
	table.Append([]string{"Soma dos grupos", r.fmt.Money(cov.Categorized)})
	table.Append([]string{"Diferença", r.fmt.Money(cov.Residual)})
	r.flush(table)
	return nil
}

func (r *Report) records(cols model.ColumnSet, records []model.Record) error {
	header := []string{"UF", "Município", "Código", "Ano", "Mês", "Valor total", "Quantidade"}
	if cols.PopulationBracket {
		header = append(header, "Faixa populacional")
	}
	table := r.newTable("Registros", header)
	for _, rec := range aggregate.Preview(records, r.settings.PreviewLimit) {
		row := []string{
			rec.State,
			rec.Municipality,
			rec.MunicipalityCode,
			strconv.Itoa(rec.Year),
			strconv.Itoa(rec.Month),
			r.fmt.Money(rec.Value),
			r.fmt.Int(rec.Quantity),
		}
		if cols.PopulationBracket {
			row = append(row, rec.PopulationBracket)
		}
		table.Append(row)
	}
	r.flush(table)
	return nil
}

func dimensionHeader(d aggregate.Dimension) string {
	switch d {
	case aggregate.DimState:
		return "UF"
	case aggregate.DimMunicipality:
		return "Município"
	case aggregate.DimRegion:
		return "Região"
	case aggregate.DimYear:
		return "Ano"
	case aggregate.DimMonth:
		return "Mês"
	case aggregate.DimPopulationBracket:
		return "Faixa populacional"
	}
	return string(d)
}
