package manager

import (
	"math"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/grid"
)

func sortByLowerBound(parts []*grid.Part) {
	slices.SortFunc(parts, func(p1, p2 *grid.Part) int {
		switch {
		case p1.Interval.Lower < p2.Interval.Lower:
			return -1
		case p1.Interval.Lower > p2.Interval.Lower:
			return 1
		}
		return 0
	})
}

// ExportRandomAttributes 随机选择attributeNumber个属性，保持源网格中的顺序
func (m *Manager) ExportRandomAttributes(target *grid.DataGrid, attributeNumber int) {
	m.mustHaveSource()
	if attributeNumber < 0 || attributeNumber > m.source.AttributeNumber() {
		panic("ExportRandomAttributes: invalid attribute number")
	}
	if !target.IsEmpty() {
		panic("ExportRandomAttributes: target data grid must be empty")
	}
	initialiseDataGrid(m.source, target)

	indexes := make([]int, m.source.AttributeNumber())
	for i := range indexes {
		indexes[i] = i
	}
	m.shuffle(indexes)
	indexes = indexes[:attributeNumber]
	slices.Sort(indexes)
	m.exportAttributesAt(target, indexes)
	ensure(func() error { return m.CheckAttributes(target) })
}

func (m *Manager) exportAttributesAt(target *grid.DataGrid, indexes []int) {
	for _, i := range indexes {
		sourceAttribute := m.source.AttributeAt(i)
		targetAttribute := target.AddAttribute(sourceAttribute.Name, sourceAttribute.Type)
		initialiseAttribute(sourceAttribute, targetAttribute)
		if targetAttribute.Type == common.VarPart {
			target.SetInnerAttributes(m.source.InnerAttributes())
		}
	}
}

// ExportRandomParts 每个属性随机划分为meanPartNumber个部分（离散属性的值少于这个数时保持原样）
func (m *Manager) ExportRandomParts(target *grid.DataGrid, meanPartNumber int) {
	m.mustHaveSource()
	if meanPartNumber < 1 || meanPartNumber > m.source.GridFrequency() {
		panic("ExportRandomParts: invalid part number")
	}
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if sourceAttribute == nil {
			panic("ExportRandomParts: unknown attribute " + targetAttribute.Name)
		}
		m.initialiseAttributeRandomParts(sourceAttribute, targetAttribute, meanPartNumber)
	}
	ensure(func() error { return m.CheckParts(target) })
}

// AddRandomAttributes 必选网格的属性加上随机选择的属性，至少requested个
func (m *Manager) AddRandomAttributes(target, mandatory *grid.DataGrid, requested int) {
	m.mustHaveSource()
	if requested < 0 || requested > m.source.AttributeNumber() {
		panic("AddRandomAttributes: invalid attribute number")
	}
	if !target.IsEmpty() {
		panic("AddRandomAttributes: target data grid must be empty")
	}
	attributeNumber := mandatory.AttributeNumber()
	if attributeNumber < requested {
		attributeNumber = requested
	}
	initialiseDataGrid(m.source, target)

	var indexes []int
	for i, a := range m.source.Attributes() {
		if mandatory.SearchAttribute(a.Name) == nil {
			indexes = append(indexes, i)
		}
	}
	m.shuffle(indexes)
	indexes = indexes[:attributeNumber-mandatory.AttributeNumber()]
	for i, a := range m.source.Attributes() {
		if mandatory.SearchAttribute(a.Name) != nil {
			indexes = append(indexes, i)
		}
	}
	slices.Sort(indexes)
	m.exportAttributesAt(target, indexes)
	ensure(func() error { return m.CheckAttributes(target) })
}

// AddRandomParts 在必选网格的划分上随机增加切分
// 每个属性请求的部分数在[minPercentage, 1]倍的请求数之间随机选取
func (m *Manager) AddRandomParts(target, mandatory *grid.DataGrid, continuousPartNumber, symbolPartNumber int, minPercentage float64) {
	m.mustHaveSource()
	frequency := m.source.GridFrequency()
	if continuousPartNumber < 1 || continuousPartNumber > frequency || symbolPartNumber < 1 || symbolPartNumber > frequency {
		panic("AddRandomParts: invalid part number")
	}
	if minPercentage < 0 || minPercentage > 1 {
		panic("AddRandomParts: invalid percentage")
	}
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if sourceAttribute == nil || sourceAttribute.Type != targetAttribute.Type {
			panic("AddRandomParts: inconsistent attribute " + targetAttribute.Name)
		}
		requested := symbolPartNumber
		if sourceAttribute.Type == common.Continuous {
			requested = continuousPartNumber
		}
		requested = int((minPercentage + (1-minPercentage)*m.random.Float64()) * float64(requested))
		if requested < 1 {
			requested = 1
		}
		if mandatoryAttribute := mandatory.SearchAttribute(targetAttribute.Name); mandatoryAttribute != nil {
			m.addAttributeRandomParts(sourceAttribute, mandatoryAttribute, targetAttribute, requested)
		} else {
			m.initialiseAttributeRandomParts(sourceAttribute, targetAttribute, requested)
		}
	}
	ensure(func() error { return m.CheckParts(target) })
}

func (m *Manager) shuffle(indexes []int) {
	m.random.Shuffle(len(indexes), func(i, j int) {
		indexes[i], indexes[j] = indexes[j], indexes[i]
	})
}

// InitRandomIndexVector 在[0, maxIndex)中随机抽取indexNumber个下标，升序返回
// maxIndex较大时先在等宽的层中各抽一个候选，避免对整个下标范围洗牌
func (m *Manager) InitRandomIndexVector(indexNumber, maxIndex int) []int {
	initialSize := maxIndex
	if maxIndex > optimization.StratifiedIndexLimit {
		size := float64(indexNumber) * 100
		if size > optimization.MaxRandomIndexPoolSize {
			size = optimization.MaxRandomIndexPoolSize
		}
		initialSize = int(size)
		if initialSize < indexNumber {
			initialSize = indexNumber
		}
		if initialSize > maxIndex {
			initialSize = maxIndex
		}
	}

	indexes := make([]int, initialSize)
	if initialSize == maxIndex {
		for i := range indexes {
			indexes[i] = i
		}
	} else {
		for i := range indexes {
			lower := int(math.Floor(float64(maxIndex) * float64(i) / float64(initialSize)))
			upper := int(math.Floor(float64(maxIndex) * float64(i+1) / float64(initialSize)))
			if upper > maxIndex {
				upper = maxIndex
			}
			if upper > lower+1 {
				indexes[i] = lower + m.random.Intn(upper-lower)
			} else {
				indexes[i] = lower
			}
		}
	}
	m.shuffle(indexes)
	if indexNumber < len(indexes) {
		indexes = indexes[:indexNumber]
	}
	slices.Sort(indexes)
	return indexes
}

// cutIntervals 按实例累计下标切分排好序的源区间
// 源区间的累计频数达到下一个切点时结束当前区间
func cutIntervals(sourceParts []*grid.Part, target *grid.Attribute, upperBounds []int, mandatoryParts []*grid.Part) {
	var targetPart *grid.Part
	boundIndex := 0
	instanceLastIndex := 0
	mandatoryIndex := 0
	for _, sourcePart := range sourceParts {
		instanceLastIndex += sourcePart.Frequency()
		if targetPart == nil {
			targetPart = target.AddPart()
			*targetPart.Interval = *sourcePart.Interval
		} else {
			targetPart.Interval.Upper = sourcePart.Interval.Upper
		}

		// 必选划分的边界总是保留
		if mandatoryParts != nil {
			for mandatoryIndex < len(mandatoryParts) && mandatoryParts[mandatoryIndex].Interval.Upper < targetPart.Interval.Upper {
				mandatoryIndex++
			}
			if mandatoryIndex < len(mandatoryParts) && mandatoryParts[mandatoryIndex].Interval.Upper == targetPart.Interval.Upper {
				targetPart = nil
			}
		}

		if boundIndex < len(upperBounds) && instanceLastIndex >= upperBounds[boundIndex] {
			targetPart = nil
			for boundIndex < len(upperBounds) && upperBounds[boundIndex] <= instanceLastIndex {
				boundIndex++
			}
		}
	}
}

// initialiseAttributeRandomParts 连续属性按随机实例下标切分，离散属性把洗牌后的值随机分组
func (m *Manager) initialiseAttributeRandomParts(source, target *grid.Attribute, partNumber int) {
	if source.Type == common.Continuous {
		upperBounds := m.InitRandomIndexVector(partNumber-1, m.source.GridFrequency())
		cutIntervals(sortedParts(source), target, upperBounds, nil)
		return
	}

	target.InitializeCatchAllValueSet(source.CatchAllValueSet())
	if source.PartNumber() <= partNumber {
		initialiseAttributeParts(source, target)
		return
	}
	sourceParts := append([]*grid.Part(nil), source.Parts()...)
	m.random.Shuffle(len(sourceParts), func(i, j int) {
		sourceParts[i], sourceParts[j] = sourceParts[j], sourceParts[i]
	})
	// 在n-1个可能的位置中随机选择partNumber-1个切点
	cuts := make([]int, len(sourceParts)-1)
	for i := range cuts {
		cuts[i] = i
	}
	m.shuffle(cuts)
	cuts = cuts[:partNumber-1]
	slices.Sort(cuts)
	groupParts(sourceParts, target, cuts, nil)
}

// groupParts 依次把源部分加入当前组，到达切点或必选组的边界时开始新的组
func groupParts(sourceParts []*grid.Part, target *grid.Attribute, cuts []int, mandatoryParts []*grid.Part) {
	var targetPart *grid.Part
	cutIndex := 0
	for i, sourcePart := range sourceParts {
		if targetPart == nil {
			targetPart = target.AddPart()
			copyPartValues(sourcePart, targetPart)
		} else {
			upgradePartValues(sourcePart, targetPart)
		}
		if mandatoryParts != nil && (i == len(sourceParts)-1 || mandatoryParts[i] != mandatoryParts[i+1]) {
			targetPart = nil
		}
		if cutIndex < len(cuts) && i >= cuts[cutIndex] {
			cutIndex++
			targetPart = nil
		}
	}
}

// addAttributeRandomParts 保留必选属性的划分，再随机增加requested个切分
func (m *Manager) addAttributeRandomParts(source, mandatory, target *grid.Attribute, requested int) {
	switch {
	case mandatory.PartNumber() <= 1:
		m.initialiseAttributeRandomParts(source, target, requested)
	case source.Type == common.Continuous:
		upperBounds := m.InitRandomIndexVector(requested, m.source.GridFrequency())
		cutIntervals(sortedParts(source), target, upperBounds, sortedParts(mandatory))
	default:
		target.InitializeCatchAllValueSet(source.CatchAllValueSet())
		if source.PartNumber() <= mandatory.PartNumber()+requested {
			initialiseAttributeParts(source, target)
			return
		}
		sourceParts, groupedParts := m.sortPartsByTargetGroups(source, mandatory)
		cuts := make([]int, len(sourceParts)-1)
		for i := range cuts {
			cuts[i] = i
		}
		m.shuffle(cuts)
		if requested < len(cuts) {
			cuts = cuts[:requested]
		}
		slices.Sort(cuts)
		groupParts(sourceParts, target, cuts, groupedParts)
	}
}

// sortPartsByTargetGroups 源部分按其所在的必选组排列，组内随机顺序
// 返回排好序的源部分及其对应的必选组
func (m *Manager) sortPartsByTargetGroups(source, grouped *grid.Attribute) ([]*grid.Part, []*grid.Part) {
	groupIndex := make(map[*grid.Part]int, grouped.PartNumber())
	for i, p := range grouped.Parts() {
		groupIndex[p] = i
	}
	sourceParts := append([]*grid.Part(nil), source.Parts()...)
	groups := make(map[*grid.Part]*grid.Part, len(sourceParts))
	for _, p := range sourceParts {
		groups[p] = grouped.LookupPart(p)
	}
	m.random.Shuffle(len(sourceParts), func(i, j int) {
		sourceParts[i], sourceParts[j] = sourceParts[j], sourceParts[i]
	})
	slices.SortStableFunc(sourceParts, func(p1, p2 *grid.Part) int {
		return groupIndex[groups[p1]] - groupIndex[groups[p2]]
	})
	groupedParts := make([]*grid.Part, len(sourceParts))
	for i, p := range sourceParts {
		groupedParts[i] = groups[p]
	}
	return sourceParts, groupedParts
}
