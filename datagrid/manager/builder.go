package manager

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
	"modl-grid/utils"
)

// VarPartAttributeName 由元组表构造的VarPart属性的名字
const VarPartAttributeName = "VarPart"

// TupleTable 元组表：每列一个属性，TargetName非空时该列是目标值
type TupleTable struct {
	Columns    []string
	Types      []common.AttributeType
	TargetName string
	Rows       [][]string
}

func (t *TupleTable) columnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

func (t *TupleTable) validate() error {
	if t == nil {
		return utils.ErrEmptyPointer
	}
	if len(t.Rows) == 0 {
		return utils.ErrEmptyTable
	}
	if len(utils.Distinct(t.Columns)) != len(t.Columns) {
		return fmt.Errorf("%w: duplicated column names %v", utils.ErrParameter, t.Columns)
	}
	if len(t.Types) != len(t.Columns) {
		return fmt.Errorf("%w: %d columns, %d types", utils.ErrParameter, len(t.Columns), len(t.Types))
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", utils.ErrParameter, i, len(row), len(t.Columns))
		}
	}
	if t.TargetName != "" && t.columnIndex(t.TargetName) < 0 {
		return fmt.Errorf("%w: target %s", utils.ErrColumnNotExist, t.TargetName)
	}
	return nil
}

// column 一列的不同值及每行所在的值下标
type column struct {
	name          string
	attributeType common.AttributeType
	numbers       []float64 // 连续属性的不同值，升序
	symbols       []string  // 离散属性的不同值，频数降序
	frequencies   []int
	rowIndexes    []int
}

func readColumn(table *TupleTable, index int) (*column, error) {
	c := &column{
		name:          table.Columns[index],
		attributeType: table.Types[index],
		rowIndexes:    make([]int, len(table.Rows)),
	}
	switch c.attributeType {
	case common.Continuous:
		values := make([]float64, len(table.Rows))
		for i, row := range table.Rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[index]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: column %s, row %d, value %q", utils.ErrWrongDataType, c.name, i, row[index])
			}
			values[i] = v
		}
		c.numbers = append([]float64(nil), values...)
		slices.Sort(c.numbers)
		c.numbers = slices.Compact(c.numbers)
		c.frequencies = make([]int, len(c.numbers))
		for i, v := range values {
			k, _ := slices.BinarySearch(c.numbers, v)
			c.rowIndexes[i] = k
			c.frequencies[k]++
		}
	case common.Symbol:
		counts := make(map[string]int)
		for _, row := range table.Rows {
			counts[row[index]]++
		}
		c.symbols = sortedByFrequency(counts)
		positions := make(map[string]int, len(c.symbols))
		c.frequencies = make([]int, len(c.symbols))
		for k, s := range c.symbols {
			positions[s] = k
			c.frequencies[k] = counts[s]
		}
		for i, row := range table.Rows {
			c.rowIndexes[i] = positions[row[index]]
		}
	default:
		return nil, fmt.Errorf("%w: column %s of type %s", utils.ErrWrongDataType, c.name, c.attributeType)
	}
	return c, nil
}

// sortedByFrequency 频数降序，频数相同按值排序
func sortedByFrequency(counts map[string]int) []string {
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	slices.SortFunc(values, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	return values
}

func (c *column) valueNumber() int {
	return len(c.frequencies)
}

// addParts 每个不同值一个部分：连续属性的边界取相邻值的中点，离散属性的最后一个部分包含星号值
func (c *column) addParts(a *grid.Attribute) []*grid.Part {
	parts := make([]*grid.Part, c.valueNumber())
	for k := range parts {
		p := a.AddPart()
		if c.attributeType == common.Continuous {
			if k > 0 {
				p.Interval.Lower = (c.numbers[k-1] + c.numbers[k]) / 2
			}
			if k < len(c.numbers)-1 {
				p.Interval.Upper = (c.numbers[k] + c.numbers[k+1]) / 2
			}
		} else {
			p.ValueSet.AddValue(c.symbols[k], c.frequencies[k])
			if k == len(c.symbols)-1 {
				p.ValueSet.AddValue(common.StarValue, 0)
			}
		}
		if a.IsInnerAttribute() {
			p.SetFrequency(c.frequencies[k])
		}
		parts[k] = p
	}
	a.InitialValueNumber = c.valueNumber()
	a.GranularizedValueNumber = c.valueNumber()
	return parts
}

// BuildDataGridFromTuples 最细的网格：每个属性的每个不同值一个部分
func BuildDataGridFromTuples(table *TupleTable) (*grid.DataGrid, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	result := grid.NewDataGrid()

	targetIndex := -1
	var targetPositions map[string]int
	if table.TargetName != "" {
		targetIndex = table.columnIndex(table.TargetName)
		counts := make(map[string]int)
		for _, row := range table.Rows {
			counts[row[targetIndex]]++
		}
		targetValues := sortedByFrequency(counts)
		targetPositions = make(map[string]int, len(targetValues))
		for k, v := range targetValues {
			targetPositions[v] = k
		}
		result.SetTargetValues(targetValues)
	}

	var columns []*column
	var partsByColumn [][]*grid.Part
	for i, name := range table.Columns {
		if i == targetIndex {
			continue
		}
		c, err := readColumn(table, i)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
		partsByColumn = append(partsByColumn, c.addParts(result.AddAttribute(name, c.attributeType)))
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no attribute column", utils.ErrParameter)
	}

	result.BuildIndexingStructure()
	parts := make([]*grid.Part, len(columns))
	for r, row := range table.Rows {
		for j, c := range columns {
			parts[j] = partsByColumn[j][c.rowIndexes[r]]
		}
		cell := result.LookupOrAddCell(parts)
		if targetIndex >= 0 {
			cell.AddTargetFrequency(targetPositions[row[targetIndex]], 1)
		} else {
			cell.AddFrequency(1)
		}
	}
	result.DeleteIndexingStructure()
	result.SortAttributeParts()
	ensure(func() error { return result.Check() })
	return result, nil
}

// BuildRegressionDataGridFromTuples 目标列是连续属性，作为带目标函数的属性放在网格中
func BuildRegressionDataGridFromTuples(table *TupleTable) (*grid.DataGrid, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	targetIndex := table.columnIndex(table.TargetName)
	if targetIndex < 0 {
		return nil, fmt.Errorf("%w: regression needs a target column", utils.ErrParameter)
	}
	if table.Types[targetIndex] != common.Continuous {
		return nil, fmt.Errorf("%w: regression target %s must be continuous", utils.ErrWrongDataType, table.TargetName)
	}
	unsupervised := *table
	unsupervised.TargetName = ""
	result, err := BuildDataGridFromTuples(&unsupervised)
	if err != nil {
		return nil, err
	}
	result.SearchAttribute(table.TargetName).TargetFunction = true
	return result, nil
}

// BuildVarPartDataGridFromTuples 实例 × 变量部分的网格：标识符列是离散属性，
// innerNames中的列成为VarPart属性的内部属性，每个内部部分单独成簇
func BuildVarPartDataGridFromTuples(table *TupleTable, identifierName string, innerNames []string) (*grid.DataGrid, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	if len(innerNames) == 0 {
		return nil, fmt.Errorf("%w: no inner attribute", utils.ErrParameter)
	}
	identifierIndex := table.columnIndex(identifierName)
	if identifierIndex < 0 {
		return nil, fmt.Errorf("%w: identifier %s", utils.ErrColumnNotExist, identifierName)
	}
	if table.Types[identifierIndex] != common.Symbol {
		return nil, fmt.Errorf("%w: identifier %s must be symbolic", utils.ErrWrongDataType, identifierName)
	}
	result := grid.NewDataGrid()

	identifierColumn, err := readColumn(table, identifierIndex)
	if err != nil {
		return nil, err
	}
	identifierParts := identifierColumn.addParts(result.AddAttribute(identifierName, common.Symbol))

	varPartAttribute := result.AddAttribute(VarPartAttributeName, common.VarPart)
	varPartAttribute.InnerAttributeNames = append([]string(nil), innerNames...)
	inner := grid.NewInnerAttributes()
	result.SetInnerAttributes(inner)

	innerColumns := make([]*column, len(innerNames))
	clusters := make([][]*grid.Part, len(innerNames))
	for j, name := range innerNames {
		index := table.columnIndex(name)
		if index < 0 {
			return nil, fmt.Errorf("%w: inner attribute %s", utils.ErrColumnNotExist, name)
		}
		if index == identifierIndex || name == table.TargetName {
			return nil, fmt.Errorf("%w: %s cannot be an inner attribute", utils.ErrParameter, name)
		}
		c, err := readColumn(table, index)
		if err != nil {
			return nil, err
		}
		innerColumns[j] = c
		for _, p := range c.addParts(inner.Add(name, c.attributeType, VarPartAttributeName)) {
			cluster := varPartAttribute.AddPart()
			cluster.VarPartSet.AddVarPart(p)
			clusters[j] = append(clusters[j], cluster)
		}
	}
	varPartAttribute.InitialValueNumber = inner.VarPartNumber()
	varPartAttribute.GranularizedValueNumber = inner.VarPartNumber()

	result.BuildIndexingStructure()
	parts := make([]*grid.Part, 2)
	for r := range table.Rows {
		parts[0] = identifierParts[identifierColumn.rowIndexes[r]]
		for j, c := range innerColumns {
			parts[1] = clusters[j][c.rowIndexes[r]]
			result.LookupOrAddCell(parts).AddFrequency(1)
		}
	}
	result.DeleteIndexingStructure()
	result.SortAttributeParts()
	for _, innerAttribute := range inner.Attributes() {
		innerAttribute.SortParts()
	}
	ensure(func() error { return result.Check() })
	return result, nil
}

// UnivariatePartition 一个属性的单变量最优划分
// 连续属性给出各区间的频数，离散属性给出每个源部分所属的组
type UnivariatePartition struct {
	AttributeName         string
	Level                 float64
	IntervalFrequencies   []int
	Groups                []int
	GroupNumber           int
	GarbageModalityNumber int
}

// BuildDataGridFromUnivariateProduct 单变量划分的乘积
// 只保留有信息量的属性，多于 1+2*log2(N) 个时按level保留前面的，至少需要两个属性
func (m *Manager) BuildDataGridFromUnivariateProduct(target *grid.DataGrid, partitions []UnivariatePartition) bool {
	m.mustHaveSource()
	if !target.IsEmpty() {
		panic("BuildDataGridFromUnivariateProduct: target data grid must be empty")
	}

	maxAttributeNumber := 1 + int(2*math.Log2(float64(max(m.source.GridFrequency(), 1))))
	var selected []*UnivariatePartition
	for i := range partitions {
		if partitions[i].Level > 0 && m.source.SearchAttribute(partitions[i].AttributeName) != nil {
			selected = append(selected, &partitions[i])
		}
	}
	if len(selected) > maxAttributeNumber {
		slices.SortFunc(selected, func(a, b *UnivariatePartition) int {
			switch {
			case a.Level > b.Level:
				return -1
			case a.Level < b.Level:
				return 1
			}
			return strings.Compare(a.AttributeName, b.AttributeName)
		})
		selected = selected[:maxAttributeNumber]
	}
	if len(selected) < 2 {
		return false
	}
	byName := make(map[string]*UnivariatePartition, len(selected))
	for _, p := range selected {
		byName[p.AttributeName] = p
	}

	initialiseDataGrid(m.source, target)
	for _, sourceAttribute := range m.source.Attributes() {
		partition, ok := byName[sourceAttribute.Name]
		if !ok {
			continue
		}
		targetAttribute := target.AddAttribute(sourceAttribute.Name, sourceAttribute.Type)
		initialiseAttribute(sourceAttribute, targetAttribute)
		if sourceAttribute.Type == common.Continuous {
			BuildPartsOfContinuousAttributeFromFrequencies(sourceAttribute, targetAttribute, partition.IntervalFrequencies)
		} else {
			BuildPartsOfSymbolAttributeFromGroups(sourceAttribute, targetAttribute, partition.Groups,
				partition.GroupNumber, partition.GarbageModalityNumber)
		}
	}
	m.ExportCells(target)
	ensure(func() error { return m.CheckDataGrid(target) })
	return true
}

// BuildPartsOfContinuousAttributeFromFrequencies 按区间频数切分排好序的源区间
func BuildPartsOfContinuousAttributeFromFrequencies(source, target *grid.Attribute, intervalFrequencies []int) {
	if target.PartNumber() > 0 {
		panic("BuildPartsOfContinuousAttributeFromFrequencies: target attribute already has parts")
	}
	var upperBounds []int
	cumulated := 0
	for _, f := range intervalFrequencies[:max(len(intervalFrequencies)-1, 0)] {
		cumulated += f
		upperBounds = append(upperBounds, cumulated)
	}
	cutIntervals(sortedParts(source), target, upperBounds, nil)
}

// BuildPartsOfSymbolAttributeFromGroups groups[i]是第i个源部分所在的组
// 有垃圾组时，初始值最多的组是垃圾组
func BuildPartsOfSymbolAttributeFromGroups(source, target *grid.Attribute, groups []int, groupNumber, garbageModalityNumber int) {
	if target.PartNumber() > 0 {
		panic("BuildPartsOfSymbolAttributeFromGroups: target attribute already has parts")
	}
	if len(groups) != source.PartNumber() {
		panic(fmt.Sprintf("BuildPartsOfSymbolAttributeFromGroups: %d groups for %d parts", len(groups), source.PartNumber()))
	}
	targetParts := make([]*grid.Part, groupNumber)
	for i := range targetParts {
		targetParts[i] = target.AddPart()
	}
	for i, sourcePart := range source.Parts() {
		upgradePartValues(sourcePart, targetParts[groups[i]])
	}
	if garbageModalityNumber > 0 && target.Type == common.Symbol {
		var garbage *grid.Part
		for _, p := range targetParts {
			if garbage == nil || p.GarbageCandidate().Before(garbage.GarbageCandidate()) {
				garbage = p
			}
		}
		target.SetGarbagePart(garbage)
	}
}

// ExportUnivariateDataGrid 只有一个属性的网格，有目标属性时一并导出
func (m *Manager) ExportUnivariateDataGrid(target *grid.DataGrid, attributeName string) {
	m.mustHaveSource()
	if !target.IsEmpty() {
		panic("ExportUnivariateDataGrid: target data grid must be empty")
	}
	sourceAttribute := m.source.SearchAttribute(attributeName)
	if sourceAttribute == nil {
		panic("ExportUnivariateDataGrid: unknown attribute " + attributeName)
	}
	initialiseDataGrid(m.source, target)
	for _, a := range m.source.Attributes() {
		if a != sourceAttribute && !a.TargetFunction {
			continue
		}
		targetAttribute := target.AddAttribute(a.Name, a.Type)
		initialiseAttribute(a, targetAttribute)
		initialiseAttributeParts(a, targetAttribute)
	}
	m.ExportCells(target)
	ensure(func() error { return m.CheckDataGrid(target) })
}
