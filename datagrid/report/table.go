package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintCostTable 每个属性的代价及其部分
func PrintCostTable(w io.Writer, s *Summary) string {
	t := table.NewWriter()
	if w != nil {
		t.SetOutputMirror(w)
	}
	t.SetTitle(fmt.Sprintf("DATA GRID COST REPORT %s", s.RunID))
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Attribute", Align: text.AlignCenter, AlignHeader: text.AlignCenter, AutoMerge: true, WidthMax: 24},
		{Name: "Part", AlignHeader: text.AlignCenter, WidthMax: 60},
		{Name: "Frequency", Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Name: "Cost", Align: text.AlignRight, AlignHeader: text.AlignCenter},
	})
	t.AppendHeader(table.Row{"Attribute", "Part", "Frequency", "Cost"})
	for _, a := range s.Attributes {
		appendAttribute(t, a, "")
		for _, inner := range a.InnerAttributes {
			appendAttribute(t, inner, a.Name+".")
		}
	}
	for _, m := range s.Missing {
		t.AppendRow(table.Row{m.Name, "(missing)", "", formatCost(m.DefaultCost)})
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"Total", fmt.Sprintf("level %.4f", s.CompressionLevel), s.InstanceNumber, formatCost(s.Cost)})
	t.AppendFooter(table.Row{"Default", "", "", formatCost(s.DefaultCost)})
	return t.Render()
}

func appendAttribute(t table.Writer, a AttributeSummary, prefix string) {
	name := prefix + a.Name
	t.AppendRow(table.Row{name, fmt.Sprintf("(%s, %d parts)", a.Type, a.PartNumber), "", formatCost(a.Cost)})
	for _, p := range a.Parts {
		label := p.Label
		if p.Garbage {
			label += " (garbage)"
		}
		t.AppendRow(table.Row{name, label, p.Frequency, formatCost(p.Cost)})
	}
	t.AppendSeparator()
}

func formatCost(cost float64) string {
	return fmt.Sprintf("%.6f", cost)
}
