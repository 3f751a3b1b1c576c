package param

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"modl-grid/datagrid/conf/optimization"
)

func TestParseTaskArgs(t *testing.T) {
	Convey("task and optimization flags", t, func() {
		saved := CurrentTask
		algorithm, level, policy, maxPass := optimization.Algorithm, optimization.OptimizationLevel, optimization.VarPartPolicy, optimization.VarPartMaxPass
		seed, deep := optimization.RandomSeed, optimization.DeepPostOptimization
		Reset(func() {
			CurrentTask = saved
			optimization.Algorithm, optimization.OptimizationLevel = algorithm, level
			optimization.VarPartPolicy, optimization.VarPartMaxPass = policy, maxPass
			optimization.RandomSeed, optimization.DeepPostOptimization = seed, deep
		})

		err := ParseTaskArgs([]string{"--i", "data.csv", "--costs", "varpart", "--id", "ID", "--inner", "V1", "V2",
			"--opt", "algorithm=vns", "level=3", "seed=42", "deep=0", "--varpart", "policy=best", "max-pass=3"})
		So(err, ShouldBeNil)
		So(CurrentTask.Input, ShouldEqual, "data.csv")
		So(CurrentTask.Inner, ShouldResemble, []string{"V1", "V2"})
		So(optimization.Algorithm, ShouldEqual, optimization.AlgorithmVNS)
		So(optimization.OptimizationLevel, ShouldEqual, 3)
		So(optimization.RandomSeed, ShouldEqual, 42)
		So(optimization.DeepPostOptimization, ShouldBeFalse)
		So(optimization.VarPartPolicy, ShouldEqual, optimization.VarPartBestImprovement)
		So(optimization.VarPartMaxPass, ShouldEqual, 3)

		var buffer bytes.Buffer
		FlagsPrint(&buffer)
		So(buffer.String(), ShouldContainSubstring, "COMMAND PARAMETER TABLE")
		So(buffer.String(), ShouldContainSubstring, "data.csv")
		So(FlagsUsage(), ShouldContainSubstring, "--identifier, --id")
	})

	Convey("inconsistent tasks are rejected", t, func() {
		saved := CurrentTask
		Reset(func() { CurrentTask = saved })

		So(ParseTaskArgs([]string{"--opt", "algorithm=annealing"}), ShouldNotBeNil)
		So(ParseTaskArgs([]string{"--costs", "entropy"}), ShouldNotBeNil)

		CurrentTask = Task{Costs: CostsClassification, Input: "data.csv"}
		So(CurrentTask.Check(), ShouldNotBeNil)
		CurrentTask.Target = "Class"
		So(CurrentTask.Check(), ShouldBeNil)
		So((&Task{Costs: CostsVarPart, Input: "data.csv", Identifier: "ID"}).Check(), ShouldNotBeNil)
		So((&Task{Serve: true}).Check(), ShouldBeNil)
	})
}

func TestNewCosts(t *testing.T) {
	Convey("costs are created by name", t, func() {
		for _, name := range []string{CostsClassification, CostsRegression, CostsClustering, CostsVarPart} {
			c, err := NewCosts(name)
			So(err, ShouldBeNil)
			So(c.Label(), ShouldNotBeEmpty)
		}
		_, err := NewCosts("entropy")
		So(err, ShouldNotBeNil)
	})
}
