package postopt

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
)

// CellFrequencyVector 一个哈希单元格在某个部分中的频数
type CellFrequencyVector struct {
	Frequency         int
	TargetFrequencies []int
}

func (c *CellFrequencyVector) add(other *CellFrequencyVector) {
	(*c).Frequency += other.Frequency
	for i, f := range other.TargetFrequencies {
		(*c).TargetFrequencies[i] += f
	}
}

func (c *CellFrequencyVector) remove(other *CellFrequencyVector) {
	(*c).Frequency -= other.Frequency
	for i, f := range other.TargetFrequencies {
		(*c).TargetFrequencies[i] -= f
	}
}

func (c *CellFrequencyVector) clone() *CellFrequencyVector {
	return &CellFrequencyVector{
		Frequency:         c.Frequency,
		TargetFrequencies: append([]int(nil), c.TargetFrequencies...),
	}
}

func (c *CellFrequencyVector) CostParams() costs.CellParams {
	return costs.CellParams{Frequency: c.Frequency, TargetFrequencies: c.TargetFrequencies}
}

// PartFrequencyVector 待优化属性的一个部分，按哈希单元格稀疏存储
// 哈希单元格的键由其它属性的部分确定
type PartFrequencyVector struct {
	cells       map[string]*CellFrequencyVector
	frequency   int
	modalities  int
	valueNumber int // 初始值个数，选择垃圾组时使用

	cost      float64
	costValid bool
}

func NewPartFrequencyVector() *PartFrequencyVector {
	return &PartFrequencyVector{cells: make(map[string]*CellFrequencyVector)}
}

func (v *PartFrequencyVector) TotalFrequency() int {
	return (*v).frequency
}

func (v *PartFrequencyVector) ModalityNumber() int {
	return (*v).modalities
}

func (v *PartFrequencyVector) ValueNumber() int {
	return (*v).valueNumber
}

// GarbageCandidate 与grid.Part的比较方式相同
func (v *PartFrequencyVector) GarbageCandidate() grid.GarbageCandidate {
	return grid.GarbageCandidate{ValueNumber: v.valueNumber, Modalities: v.modalities, Frequency: v.frequency}
}

func (v *PartFrequencyVector) CellNumber() int {
	return len(v.cells)
}

func (v *PartFrequencyVector) CellAt(key string) *CellFrequencyVector {
	return v.cells[key]
}

// Keys 哈希单元格的键，排好序
func (v *PartFrequencyVector) Keys() []string {
	keys := maps.Keys(v.cells)
	slices.Sort(keys)
	return keys
}

// AddCell 累加一个哈希单元格的频数，键不存在时新建
func (v *PartFrequencyVector) AddCell(key string, cell *CellFrequencyVector) {
	if current, ok := v.cells[key]; ok {
		current.add(cell)
	} else {
		v.cells[key] = cell.clone()
	}
	v.frequency += cell.Frequency
	v.costValid = false
}

// Add 合并另一个部分：相同的键累加，新的键插入
func (v *PartFrequencyVector) Add(other *PartFrequencyVector) {
	for key, cell := range other.cells {
		v.AddCell(key, cell)
	}
	v.modalities += other.modalities
	v.valueNumber += other.valueNumber
}

// Remove 减去一个包含在当前部分中的部分，频数为0的单元格被删除
func (v *PartFrequencyVector) Remove(other *PartFrequencyVector) {
	for key, cell := range other.cells {
		current, ok := v.cells[key]
		if !ok || current.Frequency < cell.Frequency {
			panic(fmt.Sprintf("PartFrequencyVector.Remove: cell %s not included", key))
		}
		current.remove(cell)
		if current.Frequency == 0 {
			delete(v.cells, key)
		}
		v.frequency -= cell.Frequency
	}
	v.modalities -= other.modalities
	v.valueNumber -= other.valueNumber
	v.costValid = false
}

func (v *PartFrequencyVector) Clone() *PartFrequencyVector {
	clone := &PartFrequencyVector{
		cells:       make(map[string]*CellFrequencyVector, len(v.cells)),
		frequency:   v.frequency,
		modalities:  v.modalities,
		valueNumber: v.valueNumber,
		cost:        v.cost,
		costValid:   v.costValid,
	}
	for key, cell := range v.cells {
		clone.cells[key] = cell.clone()
	}
	return clone
}

// Check 部分的频数等于单元格频数之和，单元格的目标频数之和等于其频数
func (v *PartFrequencyVector) Check() error {
	total := 0
	for key, cell := range v.cells {
		if cell.Frequency <= 0 {
			return fmt.Errorf("cell %s: frequency %d", key, cell.Frequency)
		}
		if len(cell.TargetFrequencies) > 0 {
			targetTotal := 0
			for _, f := range cell.TargetFrequencies {
				targetTotal += f
			}
			if targetTotal != cell.Frequency {
				return fmt.Errorf("cell %s: target frequencies %v for frequency %d", key, cell.TargetFrequencies, cell.Frequency)
			}
		}
		total += cell.Frequency
	}
	if total != v.frequency {
		return fmt.Errorf("part frequency %d, cell frequencies sum to %d", v.frequency, total)
	}
	return nil
}

var _ costs.FrequencyVector = (*PartFrequencyVector)(nil)
