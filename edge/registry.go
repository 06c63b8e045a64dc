package edge

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

type options struct {
	workers int
}

// Option configures a selector.
type Option func(*options)

// WithWorkers bounds the goroutines used by Init. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

var constructors = map[string]func(threshold float32, o options) Selector{
	"CUT": func(t float32, _ options) Selector { return &Cutoff{threshold: t} },
	"RBH": func(t float32, _ options) Selector { return &MutualBest{threshold: t} },
	"SRB": func(t float32, _ options) Selector { return &SoftMutualBest{threshold: t} },
	"GRB": func(t float32, o options) Selector { return &GeneMutualBest{threshold: t, workers: o.workers} },
}

// New returns the policy named name (CUT, RBH, SRB or GRB, case-insensitive).
func New(name string, threshold float32, opts ...Option) (Selector, error) {
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, fn := range opts {
		fn(&o)
	}
	ctor, ok := constructors[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownMethod, name, strings.Join(Names(), ", "))
	}
	return ctor(threshold, o), nil
}

// Names returns the registered policy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
