// internal/data/flags.go
package data

import (
	"reflect"
	"strings"
)

// ActiveFlags returns the wire names of the flags that are set in a flag
// struct such as BMSFlags or MotorErrors, in declaration order.
func ActiveFlags(flags any) []string {
	v := reflect.Indirect(reflect.ValueOf(flags))
	if v.Kind() != reflect.Struct {
		return nil
	}

	var active []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Bool || !f.Bool() {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" {
			name = t.Field(i).Name
		}
		active = append(active, name)
	}
	return active
}
