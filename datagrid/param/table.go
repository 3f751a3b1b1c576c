package param

import (
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"modl-grid/datagrid/cmd"
)

func cmdTablePrint(container *cmd.FlagContainer, w io.Writer) {
	newFlagList := make([]*cmd.Flag, len(container.GetFlags()))
	for i, flag := range container.GetFlags() {
		index, ok := container.GetPrintPriority()[flag.Name]
		if !ok {
			index = i
		}
		newFlagList[index] = flag
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "First Parameter", Align: text.AlignCenter, AlignHeader: text.AlignCenter, WidthMax: 20, WidthMin: 20},
		{Name: "Second Parameter", Align: text.AlignCenter, AlignHeader: text.AlignCenter, WidthMax: 30, WidthMin: 30},
		{Name: "Value", AlignHeader: text.AlignCenter, WidthMax: 70, WidthMin: 70}})
	t.SetTitle("COMMAND PARAMETER TABLE")
	t.AppendHeader(table.Row{"First Parameter", "Second Parameter", "Value"}, table.RowConfig{AutoMerge: true})
	for _, flag := range newFlagList {
		valueMap := flag.FlagValue.Get()
		if value, ok := valueMap["firstParaValue"]; len(valueMap) == 1 && ok {
			t.AppendRow(table.Row{flag.Name, "/", value})
		} else {
			// 二级参数排序，一级参数名放在中间一行
			median := len(valueMap) / 2
			orderedKList := make([]string, 0, len(valueMap))
			for k := range valueMap {
				orderedKList = append(orderedKList, k)
			}
			sort.Strings(orderedKList)
			for i, k := range orderedKList {
				if i == median {
					t.AppendRow(table.Row{flag.Name, k, valueMap[k]})
				} else {
					t.AppendRow(table.Row{"", k, valueMap[k]})
				}
			}
		}
		t.AppendSeparator()
	}
	t.Render()
}
