package similarity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/cvnet/cva"
)

// ErrUnknownMethod is returned by ByName for unregistered names.
var ErrUnknownMethod = errors.New("unknown similarity method")

// Method is one similarity measure over aligned composition vectors.
//
// Accumulate is applied to every entry pair of every shared column, so
// dimensions present in only one gene never reach it. Scale must account for
// those implicit zeros through the norms.
type Method interface {
	Name() string
	Norm() cva.NormKind
	Accumulate(acc float64, a, b float32) float64
	Scale(acc float64, na, nb float32) float32
}

var registry = map[string]func() Method{}

// aliases maps alternative names to registered names.
var aliases = map[string]string{
	"itou": "Jaccard",
}

// Register adds a method constructor. It panics on duplicate names.
func Register(name string, fn func() Method) {
	key := strings.ToLower(name)
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("similarity: method %q registered twice", name))
	}
	registry[key] = fn
}

// ByName returns the method registered under name, case-insensitively.
func ByName(name string) (Method, error) {
	key := strings.ToLower(name)
	if alias, ok := aliases[key]; ok {
		key = strings.ToLower(alias)
	}
	fn, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownMethod, name, strings.Join(Names(), ", "))
	}
	return fn(), nil
}

// Names returns the registered method names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, fn := range registry {
		names = append(names, fn().Name())
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("Cosine", func() Method { return Cosine{} })
	Register("Euclidean", func() Method { return Euclidean{} })
	Register("InterList", func() Method { return InterList{} })
	Register("Min2Max", func() Method { return Min2Max{} })
	Register("InterSet", func() Method { return InterSet{} })
	Register("Dice", func() Method { return Dice{} })
	Register("Jaccard", func() Method { return Jaccard{} })
}
