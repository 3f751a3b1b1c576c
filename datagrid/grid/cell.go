package grid

import (
	"strconv"
	"strings"

	"modl-grid/datagrid/costs"
)

// Cell 每个属性取一个部分的交集
type Cell struct {
	parts     []*Part
	positions []int // 在各个部分的单元格列表中的位置
	position  int   // 在网格单元格列表中的位置
	key       string

	frequency         int
	targetFrequencies []int
}

// cellKey 单元格索引的键：各部分编号的拼接
func cellKey(parts []*Part) string {
	buf := make([]byte, 0, len(parts)*8)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, p.id, 36)
	}
	return string(buf)
}

func (c *Cell) Parts() []*Part {
	return (*c).parts
}

func (c *Cell) PartAt(attributeIndex int) *Part {
	return (*c).parts[attributeIndex]
}

func (c *Cell) Frequency() int {
	return (*c).frequency
}

func (c *Cell) TargetFrequencies() []int {
	return (*c).targetFrequencies
}

func (c *Cell) TargetFrequencyAt(index int) int {
	return (*c).targetFrequencies[index]
}

// AddFrequency 无监督单元格的频数累加，同步更新各部分与网格的频数
func (c *Cell) AddFrequency(frequency int) {
	if len(c.targetFrequencies) > 0 {
		panic("AddFrequency: supervised cell, use AddTargetFrequency")
	}
	c.shiftFrequency(frequency)
}

// AddTargetFrequency 监督单元格某个目标值的频数累加
func (c *Cell) AddTargetFrequency(targetIndex, frequency int) {
	c.targetFrequencies[targetIndex] += frequency
	c.shiftFrequency(frequency)
}

// AddFrequenciesFrom 累加另一个单元格的全部频数
func (c *Cell) AddFrequenciesFrom(other *Cell) {
	for i, f := range other.targetFrequencies {
		c.targetFrequencies[i] += f
	}
	c.shiftFrequency(other.frequency)
}

// RemoveFrequenciesFrom 减去另一个单元格的全部频数
func (c *Cell) RemoveFrequenciesFrom(other *Cell) {
	for i, f := range other.targetFrequencies {
		c.targetFrequencies[i] -= f
	}
	c.shiftFrequency(-other.frequency)
}

func (c *Cell) shiftFrequency(delta int) {
	c.frequency += delta
	for _, p := range c.parts {
		p.frequency += delta
	}
	if len(c.parts) > 0 {
		c.parts[0].attribute.grid.gridFrequency += delta
	}
}

// CostParams 单元格的代价参数
func (c *Cell) CostParams() costs.CellParams {
	return costs.CellParams{Frequency: c.frequency, TargetFrequencies: c.targetFrequencies}
}

// IsSubCell 每个部分都包含在另一个单元格对应的部分中
func (c *Cell) IsSubCell(other *Cell) bool {
	if len(c.parts) != len(other.parts) {
		return false
	}
	for i, p := range c.parts {
		if !p.IsSubPart(other.parts[i]) {
			return false
		}
	}
	return true
}

func (c *Cell) String() string {
	labels := make([]string, 0, len(c.parts)+1)
	for _, p := range c.parts {
		labels = append(labels, p.Label())
	}
	labels = append(labels, strconv.Itoa(c.frequency))
	return strings.Join(labels, "\t")
}
