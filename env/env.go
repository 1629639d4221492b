// Package env provides a convenient way to convert environment
// variables into Go data. It is similar in design to package
// flag: variables are registered first and assigned by Parse.
package env

import (
	"log"
	"os"
	"strconv"
	"strings"
)

var funcs []func() bool

// define registers a parse func for env var name.
// The func is only called when the variable is set.
func define(name string, parse func(s string) error) {
	funcs = append(funcs, func() bool {
		s := os.Getenv(name)
		if s == "" {
			return true
		}
		if err := parse(s); err != nil {
			log.Println(name, err)
			return false
		}
		return true
	})
}

// Int returns a new int pointer.
// When Parse is called,
// env var name will be parsed
// and the resulting value
// will be assigned to the returned location.
func Int(name string, value int) *int {
	p := new(int)
	IntVar(p, name, value)
	return p
}

// IntVar defines an int var with the specified
// name and default value. The argument p points
// to an int variable in which to store the
// value of the environment var.
func IntVar(p *int, name string, value int) {
	*p = value
	define(name, func(s string) error {
		v, err := strconv.Atoi(s)
		if err == nil {
			*p = v
		}
		return err
	})
}

// Int64 is like Int for int64 values,
// such as gas amounts and step limits.
func Int64(name string, value int64) *int64 {
	p := new(int64)
	Int64Var(p, name, value)
	return p
}

// Int64Var is like IntVar for int64 values.
func Int64Var(p *int64, name string, value int64) {
	*p = value
	define(name, func(s string) error {
		v, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			*p = v
		}
		return err
	})
}

// Bool returns a new bool pointer.
// Parsing uses strconv.ParseBool.
func Bool(name string, value bool) *bool {
	p := new(bool)
	BoolVar(p, name, value)
	return p
}

// BoolVar defines a bool var with the specified
// name and default value.
func BoolVar(p *bool, name string, value bool) {
	*p = value
	define(name, func(s string) error {
		v, err := strconv.ParseBool(s)
		if err == nil {
			*p = v
		}
		return err
	})
}

// String returns a new string pointer.
// When Parse is called,
// env var name will be assigned
// to the returned location.
func String(name string, value string) *string {
	p := new(string)
	StringVar(p, name, value)
	return p
}

// StringVar defines a string with the
// specified name and default value.
func StringVar(p *string, name string, value string) {
	*p = value
	define(name, func(s string) error {
		*p = s
		return nil
	})
}

// StringSlice returns a pointer to a slice
// of strings. It expects env var name to
// be a list of items delimited by commas.
// If env var name is missing, StringSlice
// returns a pointer to a slice of the value
// strings.
func StringSlice(name string, value ...string) *[]string {
	p := new([]string)
	*p = value
	define(name, func(s string) error {
		*p = strings.Split(s, ",")
		return nil
	})
	return p
}

// Parse parses known env vars
// and assigns the values to the variables
// that were previously registered.
// If any values cannot be parsed,
// Parse prints an error message for each one
// and exits the process with status 1.
func Parse() {
	if !parse() {
		os.Exit(1)
	}
}

func parse() bool {
	ok := true
	for _, f := range funcs {
		ok = f() && ok
	}
	return ok
}
