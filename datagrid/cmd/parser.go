package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Flag 命令行中一项参数
type Flag struct {
	Name     string   // 参数名
	Aliases  []string // 别名
	Usage    string   // 使用帮助
	Required bool     // 是否必须设置

	FlagValue Value
}

func (flag Flag) String() string {
	return fmt.Sprintf("--%s:%s", flag.Name, flag.FlagValue.String())
}

// fit 与当前flag同名，或者是它的一个别名
func (flag *Flag) fit(oneName string) bool {
	if (*flag).Name == oneName {
		return true
	}
	for _, name := range (*flag).Aliases {
		if name == oneName {
			return true
		}
	}
	return false
}

type FlagContainer struct {
	flags              []*Flag
	flagsPrintPriority map[string]int
}

func NewFlagContainer() *FlagContainer {
	return &FlagContainer{}
}

func (container *FlagContainer) GetFlags() []*Flag {
	return container.flags
}

func (container *FlagContainer) SetPrintPriority(flagsPrintPriority map[string]int) {
	container.flagsPrintPriority = flagsPrintPriority
}

func (container *FlagContainer) GetPrintPriority() map[string]int {
	return container.flagsPrintPriority
}

func (container FlagContainer) String() string {
	sortedFlags := make([]*Flag, len(container.flags))
	copy(sortedFlags, container.flags)
	sort.Slice(sortedFlags, func(i, j int) bool {
		return sortedFlags[i].Name < sortedFlags[j].Name
	})

	builder := strings.Builder{}
	for _, flag := range sortedFlags {
		builder.WriteString((*flag).String())
		builder.WriteString("\n")
	}
	return builder.String()
}

// Usage 每个flag一行帮助
func (container *FlagContainer) Usage() string {
	builder := strings.Builder{}
	for _, flag := range container.flags {
		builder.WriteString("  --")
		builder.WriteString(flag.Name)
		for _, alias := range flag.Aliases {
			builder.WriteString(", --")
			builder.WriteString(alias)
		}
		builder.WriteString("\t")
		builder.WriteString(flag.Usage)
		if flag.Required {
			builder.WriteString(" (required)")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// AddFlags 添加新的flag，名字和别名都不能重复
func (container *FlagContainer) AddFlags(flags ...*Flag) error {
	for _, flagToBeAdded := range flags {
		for _, flagToCheck := range (*container).flags {
			if flagToCheck.fit((*flagToBeAdded).Name) {
				return fmt.Errorf("already existed flag with name or alias:%s", (*flagToBeAdded).Name)
			}
			for _, alias := range (*flagToBeAdded).Aliases {
				if flagToCheck.fit(alias) {
					return fmt.Errorf("already existed flag with name or alias:%s", alias)
				}
			}
		}
		(*container).flags = append((*container).flags, flagToBeAdded)
	}
	return nil
}

var argPattern = regexp.MustCompile(`^-{2}([^-].*)`)

// Parse 解析输入的命令行参数，形如 --name v1 v2 --other
// 不支持缩写-p，负数会被当成值
func (container *FlagContainer) Parse(args []string) error {
	curFlags := make([]*Flag, len((*container).flags))
	copy(curFlags, (*container).flags)
	if len(curFlags) == 0 {
		if len(args) != 0 {
			return errors.New("too many args for container to parse")
		}
		return nil
	}

	argIndex := 0
	flagsBeParsed := make([]*Flag, 0, len(curFlags))
	for argIndex < len(args) {
		argName := argPattern.FindStringSubmatch(args[argIndex]) // [完整匹配，捕获的匹配]
		if len(argName) != 2 {
			return fmt.Errorf("arg doesn't start with '--<arg name>':'%s'", args[argIndex])
		}
		matchedFlagIndex := -1
		for flagIndex, flag := range curFlags {
			if !flag.fit(argName[1]) {
				continue
			}
			matchedFlagIndex = flagIndex
			argIndex += 1
			argValue := []string(nil)
			for argIndex < len(args) && len(argPattern.FindStringSubmatch(args[argIndex])) == 0 {
				// 这个arg下带的值
				argValue = append(argValue, args[argIndex])
				argIndex += 1
			}
			if err := flag.FlagValue.Set(argValue); err != nil {
				return fmt.Errorf("error in set value for arg:'%s', <%s>", argName[1], err.Error())
			}
			break
		}
		if matchedFlagIndex == -1 {
			// 同一个参数写了两遍时第一次已经消耗了这个flag
			for _, flag := range flagsBeParsed {
				if flag.fit(argName[1]) {
					return fmt.Errorf("duplicated arg:'%s'", argName[1])
				}
			}
			return fmt.Errorf("unexpected arg:'%s'", argName[1])
		}
		flagsBeParsed = append(flagsBeParsed, curFlags[matchedFlagIndex])
		curFlags[matchedFlagIndex], curFlags[0] = curFlags[0], curFlags[matchedFlagIndex]
		curFlags = curFlags[1:]
	}

	var err error
	for _, flag := range curFlags {
		if !flag.Required {
			continue
		}
		if err == nil {
			err = fmt.Errorf("flag is required but not set: '%s'", (*flag).Usage)
		} else {
			err = fmt.Errorf("%s\nflag is required but not set: '%s'", err.Error(), (*flag).Usage)
		}
	}
	return err
}
