package cmd

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFlagContainer(t *testing.T) {
	Convey("flags are parsed by name or alias", t, func() {
		var (
			input   string
			level   int
			seed    int64
			debug   bool
			deep    = true
			policy  = "first"
			maxPass = 10
			inner   []string
		)
		container := NewFlagContainer()
		So(container.AddFlags(
			&Flag{Name: "input", Aliases: []string{"i"}, Required: true, FlagValue: NewStringValue(&input, nil)},
			&Flag{Name: "level", FlagValue: NewIntValue(&level, func(v int) error {
				if v < 0 {
					return errors.New("negative level")
				}
				return nil
			})},
			&Flag{Name: "seed", FlagValue: NewInt64Value(&seed, nil)},
			&Flag{Name: "debug", FlagValue: NewNoArgBoolValue(&debug)},
			&Flag{Name: "deep", FlagValue: &BoolCmdValue{Destination: &deep}},
			&Flag{Name: "inner", FlagValue: NewStringListValue(&inner)},
			&Flag{Name: "varpart", FlagValue: NewSecondaryValue(map[string]Value{
				"policy": NewStringValue(&policy, nil),
				"pass":   NewIntValue(&maxPass, nil),
			}, nil)},
		), ShouldBeNil)

		err := container.Parse([]string{"--i", "data.csv", "--level", "3", "--seed", "-7", "--debug",
			"--deep", "0", "--inner", "V1", "V2", "--varpart", "policy=best", "pass=4"})
		So(err, ShouldBeNil)
		So(input, ShouldEqual, "data.csv")
		So(level, ShouldEqual, 3)
		So(seed, ShouldEqual, -7)
		So(debug, ShouldBeTrue)
		So(deep, ShouldBeFalse)
		So(inner, ShouldResemble, []string{"V1", "V2"})
		So(policy, ShouldEqual, "best")
		So(maxPass, ShouldEqual, 4)

		Convey("and the container can be parsed again", func() {
			So(container.Parse([]string{"--input", "other.csv"}), ShouldBeNil)
			So(input, ShouldEqual, "other.csv")
		})

		Convey("errors are reported", func() {
			So(container.Parse([]string{"--level", "1"}), ShouldNotBeNil)
			So(container.Parse([]string{"--input", "a", "--input", "b"}).Error(), ShouldContainSubstring, "duplicated")
			So(container.Parse([]string{"--input", "a", "--unknown"}).Error(), ShouldContainSubstring, "unexpected")
			So(container.Parse([]string{"--input", "a", "--level", "-1"}).Error(), ShouldContainSubstring, "negative level")
			So(container.Parse([]string{"--input", "a", "--varpart", "policy"}), ShouldNotBeNil)
			So(container.Parse([]string{"input"}), ShouldNotBeNil)
		})

		Convey("names and aliases are unique", func() {
			So(container.AddFlags(&Flag{Name: "x", Aliases: []string{"input"}, FlagValue: NewStringValue(&input, nil)}), ShouldNotBeNil)
			So(container.AddFlags(&Flag{Name: "i", FlagValue: NewStringValue(&input, nil)}), ShouldNotBeNil)
		})
	})
}
