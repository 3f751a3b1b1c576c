package varpart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/postopt"
)

// varPart 优化过程中的一个变量部分，可能由optimized的多个内部部分融合而成
type varPart struct {
	inner      *grid.Attribute
	parts      []*grid.Part // optimized中被融合的内部部分
	lower      float64
	upper      float64
	modalities int
	frequency  int
	cluster    *cluster // 被融合掉后为nil
	vector     *postopt.PartFrequencyVector
	rebuilt    *grid.Part
}

func (v *varPart) costParams() costs.PartParams {
	valueNumber := 1
	if v.inner.Type == common.Symbol {
		valueNumber = v.modalities
	}
	return costs.PartParams{
		AttributeType:       v.inner.Type,
		Frequency:           v.frequency,
		ValueNumber:         valueNumber,
		TargetPartitionSize: 1,
	}
}

func (v *varPart) label() string {
	if v.inner.Type == common.Continuous {
		return fmt.Sprintf("%s]%g;%g]", v.inner.Name, v.lower, v.upper)
	}
	labels := make([]string, len(v.parts))
	for i, p := range v.parts {
		labels[i] = p.Label()
	}
	return v.inner.Name + "{" + strings.Join(labels, ",") + "}"
}

// cluster VarPart属性的一个簇
type cluster struct {
	index    int
	varParts []*varPart
	vector   *postopt.PartFrequencyVector
}

func (c *cluster) costParams() costs.PartParams {
	return costs.PartParams{
		AttributeType:       common.VarPart,
		Frequency:           c.vector.TotalFrequency(),
		ValueNumber:         len(c.varParts),
		TargetPartitionSize: 1,
	}
}

func (c *cluster) isEmpty() bool {
	return len(c.varParts) == 0
}

// state optimized的VarPart属性按簇与变量部分展开，单元格按其它属性的部分哈希
type state struct {
	costs      costs.DataGridCosts
	grid       *grid.DataGrid
	attribute  *grid.Attribute
	inner      []*grid.Attribute
	varParts   map[*grid.Attribute][]*varPart // 连续属性按区间排序
	clusters   []*cluster
	gridParams costs.GridParams
	cost       float64
}

// newState 变量部分的单元格来自reference，reference的每个簇必须只有一个变量部分
func newState(dataGridCosts costs.DataGridCosts, reference, optimized *grid.DataGrid, cost float64) (*state, error) {
	a := optimized.VarPartAttribute()
	s := &state{
		costs:      dataGridCosts,
		grid:       optimized,
		attribute:  a,
		varParts:   make(map[*grid.Attribute][]*varPart),
		gridParams: optimized.CostParams(),
		cost:       cost,
	}

	byPart := make(map[*grid.Part]*varPart)
	for _, innerAttribute := range optimized.InnerAttributes().Attributes() {
		if innerAttribute.Type == common.Continuous && !innerAttribute.ArePartsSorted() {
			innerAttribute.SortParts()
		}
		innerAttribute.BuildIndexingStructure()
		s.inner = append(s.inner, innerAttribute)
		for _, p := range innerAttribute.Parts() {
			v := &varPart{
				inner:      innerAttribute,
				parts:      []*grid.Part{p},
				modalities: p.ValueNumber(),
				frequency:  p.Frequency(),
				vector:     postopt.NewPartFrequencyVector(),
			}
			if p.Interval != nil {
				v.lower, v.upper = p.Interval.Lower, p.Interval.Upper
			}
			byPart[p] = v
			s.varParts[innerAttribute] = append(s.varParts[innerAttribute], v)
		}
	}
	for i, p := range a.Parts() {
		c := &cluster{index: i, vector: postopt.NewPartFrequencyVector()}
		for _, innerPart := range p.VarPartSet.VarParts {
			v := byPart[innerPart]
			if v == nil {
				return nil, fmt.Errorf("cluster %d: variable part %s is not an inner part", i, innerPart.Label())
			}
			v.cluster = c
			c.varParts = append(c.varParts, v)
		}
		s.clusters = append(s.clusters, c)
	}

	if err := s.hashReferenceCells(reference, byPart); err != nil {
		return nil, err
	}
	for _, c := range s.clusters {
		for _, v := range c.varParts {
			c.vector.Add(v.vector)
		}
	}
	return s, nil
}

// hashReferenceCells 每个reference单元格按其变量部分累加到对应的varPart
func (s *state) hashReferenceCells(reference *grid.DataGrid, byPart map[*grid.Part]*varPart) error {
	referenceVarPart := reference.SearchAttribute(s.attribute.Name)
	if referenceVarPart == nil {
		return fmt.Errorf("attribute %s not found in reference data grid", s.attribute.Name)
	}
	type projection struct {
		optimized *grid.Attribute
		index     int
	}
	var others []projection
	for _, b := range s.grid.Attributes() {
		if b == s.attribute {
			continue
		}
		rb := reference.SearchAttribute(b.Name)
		if rb == nil {
			return fmt.Errorf("attribute %s not found in reference data grid", b.Name)
		}
		if b.Type == common.Continuous && !b.ArePartsSorted() {
			b.SortParts()
		}
		b.BuildIndexingStructure()
		others = append(others, projection{optimized: b, index: rb.Index()})
	}

	var key strings.Builder
	for _, c := range reference.Cells() {
		referenceCluster := c.PartAt(referenceVarPart.Index())
		if len(referenceCluster.VarPartSet.VarParts) != 1 {
			return fmt.Errorf("reference cluster %s holds %d variable parts", referenceCluster.Label(),
				len(referenceCluster.VarPartSet.VarParts))
		}
		referenceInner := referenceCluster.VarPartSet.VarParts[0]
		innerAttribute := s.grid.InnerAttributes().Lookup(referenceInner.Attribute().Name)
		if innerAttribute == nil {
			return fmt.Errorf("unknown inner attribute %s", referenceInner.Attribute().Name)
		}
		v := byPart[innerAttribute.LookupPart(referenceInner)]
		if v == nil {
			return fmt.Errorf("no variable part for %s", referenceInner.Label())
		}

		key.Reset()
		for _, other := range others {
			p := other.optimized.LookupPart(c.PartAt(other.index))
			if p == nil {
				return fmt.Errorf("no part of %s for cell %s", other.optimized.Name, c)
			}
			key.WriteString(strconv.FormatInt(p.ID(), 36))
			key.WriteByte(',')
		}
		v.vector.AddCell(key.String(), &postopt.CellFrequencyVector{
			Frequency:         c.Frequency(),
			TargetFrequencies: c.TargetFrequencies(),
		})
	}
	return nil
}

func (s *state) clusterNumber() int {
	n := 0
	for _, c := range s.clusters {
		if !c.isEmpty() {
			n++
		}
	}
	return n
}

// attributeParams VarPart属性的代价参数，inner中removed的变量部分被替换为added
// 分区单元个数是所有内部属性的变量部分数
func (s *state) attributeParams(inner *grid.Attribute, removed []*varPart, added *costs.PartParams) costs.AttributeParams {
	params := s.attribute.CostParams()
	params.InnerAttributes = nil
	varPartNumber := 0
	for _, innerAttribute := range s.inner {
		innerParams := costs.InnerAttributeParams{AttributeParams: innerAttribute.CostParams()}
		for _, v := range s.varParts[innerAttribute] {
			if innerAttribute == inner && slices.Contains(removed, v) {
				continue
			}
			innerParams.Parts = append(innerParams.Parts, v.costParams())
		}
		if innerAttribute == inner && added != nil {
			innerParams.Parts = append(innerParams.Parts, *added)
		}
		varPartNumber += innerParams.PartNumber()
		params.InnerAttributes = append(params.InnerAttributes, innerParams)
	}
	params.InitialValueNumber = varPartNumber
	params.GranularizedValueNumber = varPartNumber
	return params
}

func (s *state) attributeCost() float64 {
	return s.costs.ComputeAttributeCost(s.attributeParams(nil, nil, nil), s.clusterNumber())
}

// emptyClusterGridParams 少一个簇之后的网格参数
func (s *state) emptyClusterGridParams() costs.GridParams {
	k := s.clusterNumber()
	params := s.gridParams
	params.LnGridSize += math.Log(float64(k-1)) - math.Log(float64(k))
	if k == 2 {
		params.InformativeAttributeNumber--
	}
	return params
}

func (s *state) cellCost(cell *postopt.CellFrequencyVector) float64 {
	if cell == nil || cell.Frequency == 0 {
		return 0
	}
	return s.costs.ComputeCellCost(cell.CostParams())
}

func (s *state) clusterCost(params costs.PartParams) float64 {
	if params.Frequency == 0 {
		return 0
	}
	return s.costs.ComputePartCost(params)
}
