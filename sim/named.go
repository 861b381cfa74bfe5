package sim

import (
	"log"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name is empty or contains characters that
// cannot appear in a file name.
func NameMustBeValid(name string) {
	if name == "" {
		log.Panic("name must not be empty")
	}

	if strings.ContainsAny(name, "/\\ \t\n") {
		log.Panicf("name %q must not contain separators or spaces", name)
	}
}
