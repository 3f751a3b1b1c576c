// Package report 优化结果的输出：代价表、graphviz结构图、yaml摘要和单元格csv
package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
)

// Summary 一个数据网格的摘要
type Summary struct {
	RunID            string             `yaml:"run_id" json:"run_id"`
	Costs            string             `yaml:"costs" json:"costs"`
	Cost             float64            `yaml:"cost" json:"cost"`
	DefaultCost      float64            `yaml:"default_cost" json:"default_cost"`
	ModelCost        float64            `yaml:"model_cost" json:"model_cost"`
	CompressionLevel float64            `yaml:"compression_level" json:"compression_level"`
	InstanceNumber   int                `yaml:"instance_number" json:"instance_number"`
	CellNumber       int                `yaml:"cell_number" json:"cell_number"`
	TargetValues     []string           `yaml:"target_values,omitempty" json:"target_values,omitempty"`
	Attributes       []AttributeSummary `yaml:"attributes" json:"attributes"`
	Missing          []MissingSummary   `yaml:"missing,omitempty" json:"missing,omitempty"`
}

type AttributeSummary struct {
	Name            string             `yaml:"name" json:"name"`
	Type            string             `yaml:"type" json:"type"`
	TargetFunction  bool               `yaml:"target_function,omitempty" json:"target_function,omitempty"`
	PartNumber      int                `yaml:"part_number" json:"part_number"`
	Cost            float64            `yaml:"cost" json:"cost"`
	Parts           []PartSummary      `yaml:"parts" json:"parts"`
	InnerAttributes []AttributeSummary `yaml:"inner_attributes,omitempty" json:"inner_attributes,omitempty"`
}

type PartSummary struct {
	Label       string  `yaml:"label" json:"label"`
	Frequency   int     `yaml:"frequency" json:"frequency"`
	ValueNumber int     `yaml:"value_number" json:"value_number"`
	Cost        float64 `yaml:"cost" json:"cost"`
	Garbage     bool    `yaml:"garbage,omitempty" json:"garbage,omitempty"`
}

// MissingSummary 不在网格中的属性，按终端网格计价
type MissingSummary struct {
	Name        string  `yaml:"name" json:"name"`
	DefaultCost float64 `yaml:"default_cost" json:"default_cost"`
}

// NewSummary evaluator必须已经用初始网格初始化
func NewSummary(runID string, evaluator *grid.CostEvaluator, g *grid.DataGrid) *Summary {
	dataGridCosts := evaluator.Costs()
	s := &Summary{
		RunID:            runID,
		Costs:            dataGridCosts.Label(),
		Cost:             evaluator.ComputeDataGridTotalCost(g),
		DefaultCost:      evaluator.TotalDefaultCost(),
		ModelCost:        evaluator.ComputeDataGridTotalModelCost(g),
		CompressionLevel: evaluator.ComputeDataGridCompressionCoefficient(g),
		InstanceNumber:   g.GridFrequency(),
		CellNumber:       g.CellNumber(),
		TargetValues:     g.TargetValues(),
	}
	for _, a := range g.Attributes() {
		attribute := attributeSummary(a, dataGridCosts.ComputeAttributeCost(a.CostParams(), a.PartNumber()),
			func(p *grid.Part) float64 { return dataGridCosts.ComputePartCost(p.CostParams()) })
		if a.Type == common.VarPart && g.InnerAttributes() != nil {
			for _, name := range a.InnerAttributeNames {
				inner := g.InnerAttributes().Lookup(name)
				if inner == nil {
					continue
				}
				attribute.InnerAttributes = append(attribute.InnerAttributes, attributeSummary(inner,
					dataGridCosts.ComputeInnerAttributeCost(inner.CostParams(), inner.PartNumber()),
					func(p *grid.Part) float64 { return dataGridCosts.ComputeInnerAttributePartCost(p.CostParams()) }))
			}
		}
		s.Attributes = append(s.Attributes, attribute)
	}
	for i := 0; i < evaluator.TotalAttributeNumber(); i++ {
		if name := evaluator.AttributeNameAt(i); g.SearchAttribute(name) == nil {
			s.Missing = append(s.Missing, MissingSummary{Name: name, DefaultCost: evaluator.AttributeDefaultCostAt(i)})
		}
	}
	return s
}

func attributeSummary(a *grid.Attribute, cost float64, partCost func(*grid.Part) float64) AttributeSummary {
	result := AttributeSummary{
		Name:           a.Name,
		Type:           a.Type.String(),
		TargetFunction: a.TargetFunction,
		PartNumber:     a.PartNumber(),
		Cost:           cost,
	}
	for _, p := range a.Parts() {
		result.Parts = append(result.Parts, PartSummary{
			Label:       p.Label(),
			Frequency:   p.Frequency(),
			ValueNumber: p.ValueNumber(),
			Cost:        partCost(p),
			Garbage:     p == a.GarbagePart(),
		})
	}
	return result
}

func (s *Summary) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// WriteYAML 摘要写入文件
func (s *Summary) WriteYAML(path string) error {
	data, err := s.YAML()
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary %s: %w", path, err)
	}
	return nil
}

// ReadYAML 读回摘要，用于比较两次运行
func ReadYAML(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	s := &Summary{}
	if err = yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal summary %s: %w", path, err)
	}
	return s, nil
}
