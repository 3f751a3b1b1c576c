package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Value interface {
	Set(rawValue []string) error // Set 将读入的参数转换为需要的类型，[]string也用来检查值的个数
	Get() map[string]string      // Get 取出值用于打印，一级参数的key是firstParaValue
	String() string
}

const firstParaValue = "firstParaValue"

func singleValue(rawValue []string) (string, error) {
	if len(rawValue) == 0 {
		return "", errors.New("too few values for this arg，forget to set? ")
	}
	if len(rawValue) > 1 {
		return "", errors.New("too many values for this arg")
	}
	return rawValue[0], nil
}

// NoArgBoolValue 不带值，命令行存在这个参数就置true
type NoArgBoolValue struct {
	destination *bool
}

func NewNoArgBoolValue(destination *bool) *NoArgBoolValue {
	return &NoArgBoolValue{destination: destination}
}

func (value *NoArgBoolValue) Set(rawValue []string) error {
	if len(rawValue) > 0 {
		return errors.New("too many values for this arg")
	}
	*(*value).destination = true
	return nil
}

func (value *NoArgBoolValue) String() string {
	return strconv.FormatBool(*(*value).destination)
}

func (value *NoArgBoolValue) Get() map[string]string {
	return map[string]string{firstParaValue: value.String()}
}

// BoolCmdValue 0或1
type BoolCmdValue struct {
	Destination *bool
}

func (value *BoolCmdValue) Set(rawValue []string) error {
	if value == nil || (*value).Destination == nil {
		return errors.New("no destination to store values")
	}
	raw, err := singleValue(rawValue)
	if err != nil {
		return err
	}
	asInt, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("can't use '%s' in bool setting", raw)
	}
	if !(asInt == 0 || asInt == 1) {
		return fmt.Errorf("validate falied!===> expected 0 or 1, but got '%s'", raw)
	}
	*(*value).Destination = asInt == 1
	return nil
}

func (value *BoolCmdValue) String() string {
	return fmt.Sprintf("%t", *(*value).Destination)
}

func (value *BoolCmdValue) Get() map[string]string {
	return map[string]string{firstParaValue: value.String()}
}

type StringValue struct {
	destination *string
	validate    func(valueToCheck string) error
}

func NewStringValue(destination *string, validateFunc func(valueToCheck string) error) *StringValue {
	return &StringValue{destination: destination, validate: validateFunc}
}

func (value *StringValue) Set(rawValue []string) error {
	if value == nil || (*value).destination == nil {
		return errors.New("no destination to store values")
	}
	raw, err := singleValue(rawValue)
	if err != nil {
		return err
	}
	if (*value).validate != nil {
		if err := (*value).validate(raw); err != nil {
			return fmt.Errorf("validate falied!===>%s", err.Error())
		}
	}
	*(*value).destination = raw
	return nil
}

func (value *StringValue) String() string {
	return *(*value).destination
}

func (value *StringValue) Get() map[string]string {
	return map[string]string{firstParaValue: *(*value).destination}
}

type IntValue struct {
	destination *int
	validate    func(valueToCheck int) error
}

func NewIntValue(destination *int, validateFunc func(valueToCheck int) error) *IntValue {
	return &IntValue{destination: destination, validate: validateFunc}
}

func (value *IntValue) Set(rawValue []string) error {
	if value == nil || (*value).destination == nil {
		return errors.New("no destination to store values")
	}
	raw, err := singleValue(rawValue)
	if err != nil {
		return err
	}
	intValue, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("can't use '%s' as integer values", raw)
	}
	if (*value).validate != nil {
		if err = (*value).validate(intValue); err != nil {
			return fmt.Errorf("validate falied!===>%s", err.Error())
		}
	}
	*(*value).destination = intValue
	return nil
}

func (value *IntValue) String() string {
	return strconv.Itoa(*(*value).destination)
}

func (value *IntValue) Get() map[string]string {
	return map[string]string{firstParaValue: value.String()}
}

type Int64Value struct {
	destination *int64
	validate    func(valueToCheck int64) error
}

func NewInt64Value(destination *int64, validateFunc func(valueToCheck int64) error) *Int64Value {
	return &Int64Value{destination: destination, validate: validateFunc}
}

func (value *Int64Value) Set(rawValue []string) error {
	if value == nil || (*value).destination == nil {
		return errors.New("no destination to store values")
	}
	raw, err := singleValue(rawValue)
	if err != nil {
		return err
	}
	int64Value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errors.New("can't use '" + raw + "' as int64 values")
	}
	if (*value).validate != nil {
		if err = (*value).validate(int64Value); err != nil {
			return fmt.Errorf("validate falied!===>%s", err.Error())
		}
	}
	*(*value).destination = int64Value
	return nil
}

func (value *Int64Value) String() string {
	return strconv.FormatInt(*(*value).destination, 10)
}

func (value *Int64Value) Get() map[string]string {
	return map[string]string{firstParaValue: value.String()}
}

type StringListValue struct {
	destination *[]string
}

func NewStringListValue(destination *[]string) *StringListValue {
	return &StringListValue{destination: destination}
}

func (value *StringListValue) Set(rawValue []string) error {
	if value == nil || (*value).destination == nil {
		return errors.New("no destination to store values")
	}
	if len(rawValue) == 0 {
		return errors.New("too few values for this arg，forget to set? ")
	}
	*(*value).destination = append([]string(nil), rawValue...)
	return nil
}

func (value *StringListValue) String() string {
	return fmt.Sprintf("%v", *(*value).destination)
}

func (value *StringListValue) Get() map[string]string {
	return map[string]string{firstParaValue: value.String()}
}

// SecondaryValue 二级参数，每一项是"key=value"
type SecondaryValue struct {
	values   map[string]Value
	validate func(valueToCheck map[string]Value) error
}

func NewSecondaryValue(values map[string]Value, validateFunc func(valueToCheck map[string]Value) error) *SecondaryValue {
	return &SecondaryValue{values: values, validate: validateFunc}
}

func (value *SecondaryValue) Set(rawValue []string) error {
	if value == nil {
		return errors.New("no destination to store values")
	}

	tempKeep := make(map[string]string)
	for _, raw := range rawValue {
		pairs := strings.SplitN(raw, "=", 2)
		if len(pairs) != 2 || len(pairs[0]) == 0 || len(pairs[1]) == 0 {
			return fmt.Errorf("wrong format as 'key=value': %s", raw)
		}
		if _, has := tempKeep[pairs[0]]; has {
			return fmt.Errorf("duplicated key: %s", pairs[0])
		}
		if _, has := (*value).values[pairs[0]]; !has {
			return fmt.Errorf("not expected key: %s", pairs[0])
		}
		tempKeep[pairs[0]] = pairs[1]
	}

	for subKey, subValue := range tempKeep {
		if err := (*value).values[subKey].Set([]string{subValue}); err != nil {
			return fmt.Errorf("in SecondaryValue, when set values for '%s': %s", subKey, err.Error())
		}
	}

	if (*value).validate != nil {
		if err := (*value).validate((*value).values); err != nil {
			return fmt.Errorf("validate falied!===>%s", err.Error())
		}
	}
	return nil
}

func (value *SecondaryValue) String() string {
	builder := strings.Builder{}
	subKeysInOrder := make([]string, 0, len((*value).values))
	for subKey := range (*value).values {
		subKeysInOrder = append(subKeysInOrder, subKey)
	}
	sort.Strings(subKeysInOrder)
	for _, subKey := range subKeysInOrder {
		builder.WriteString("\n\t")
		builder.WriteString(subKey)
		builder.WriteString(": ")
		builder.WriteString((*value).values[subKey].String())
	}
	return builder.String()
}

func (value *SecondaryValue) Get() map[string]string {
	outPutMap := make(map[string]string, len((*value).values))
	for subKey, v := range (*value).values {
		outPutMap[subKey] = v.String()
	}
	return outPutMap
}

func (value *SecondaryValue) AddSubValue(subKey string, subValue Value) error {
	if value == nil {
		return errors.New("nil value")
	}
	if (*value).values == nil {
		(*value).values = make(map[string]Value)
	}
	if _, has := (*value).values[subKey]; has {
		return fmt.Errorf("already existed subKey:%s", subKey)
	}
	(*value).values[subKey] = subValue
	return nil
}
