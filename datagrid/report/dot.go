package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
)

const graphName = "G"

// ToGraph 每个属性一个子图，部分是节点
// 相邻两个属性的部分之间按共现频数连边，VarPart簇连向其中的内部部分
func ToGraph(g *grid.DataGrid) (*gographviz.Graph, error) {
	graphAst, err := gographviz.Parse([]byte(`digraph G{}`))
	if err != nil {
		return nil, err
	}
	graph := gographviz.NewGraph()
	if err = gographviz.Analyse(graphAst, graph); err != nil {
		return nil, err
	}
	if err = graph.AddAttr(graphName, "rankdir", "LR"); err != nil {
		return nil, err
	}

	nodes := make(map[*grid.Part]string)
	for i, a := range g.Attributes() {
		subGraph := fmt.Sprintf("cluster_%d", i)
		if err = graph.AddSubGraph(graphName, subGraph, map[string]string{"label": strconv.Quote(a.Name)}); err != nil {
			return nil, err
		}
		for j, p := range a.Parts() {
			nodes[p] = fmt.Sprintf("a%dp%d", i, j)
			label := fmt.Sprintf("%s\n%d", p.Label(), p.Frequency())
			if err = graph.AddNode(subGraph, nodes[p], map[string]string{"label": strconv.Quote(label), "shape": "box"}); err != nil {
				return nil, err
			}
		}
		if a.Type == common.VarPart {
			if err = addInnerParts(graph, a, subGraph, nodes); err != nil {
				return nil, err
			}
		}
	}

	// 相邻属性之间的共现频数
	for i := 0; i+1 < g.AttributeNumber(); i++ {
		frequencies := make(map[[2]*grid.Part]int)
		var order [][2]*grid.Part
		for _, c := range g.Cells() {
			key := [2]*grid.Part{c.PartAt(i), c.PartAt(i + 1)}
			if _, ok := frequencies[key]; !ok {
				order = append(order, key)
			}
			frequencies[key] += c.Frequency()
		}
		for _, key := range order {
			attrs := map[string]string{"label": strconv.Quote(strconv.Itoa(frequencies[key])), "dir": "none"}
			if err = graph.AddEdge(nodes[key[0]], nodes[key[1]], true, attrs); err != nil {
				return nil, err
			}
		}
	}
	return graph, nil
}

func addInnerParts(graph *gographviz.Graph, a *grid.Attribute, subGraph string, nodes map[*grid.Part]string) error {
	for j, cluster := range a.Parts() {
		for k, vp := range cluster.VarPartSet.VarParts {
			name := fmt.Sprintf("%s_%dv%d", nodes[cluster], j, k)
			label := fmt.Sprintf("%s %s", vp.Attribute().Name, vp.Label())
			if err := graph.AddNode(subGraph, name, map[string]string{"label": strconv.Quote(label), "shape": "ellipse"}); err != nil {
				return err
			}
			if err := graph.AddEdge(nodes[cluster], name, true, map[string]string{"style": "dashed"}); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteDot 写入graphviz文件
func WriteDot(path string, g *grid.DataGrid) error {
	graph, err := ToGraph(g)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	if err = os.WriteFile(path, []byte(graph.String()), 0o644); err != nil {
		return fmt.Errorf("write dot %s: %w", path, err)
	}
	return nil
}
