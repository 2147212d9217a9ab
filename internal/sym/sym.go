// Package sym provides the symbolic parameter engine used by circuits.
// Expressions are immutable values: substitution always returns a new
// expression and fully numeric expressions collapse to a Number.
package sym

import (
	"strconv"
	"strings"
)

// Expr is a symbolic expression. A fully bound expression reports its
// numeric value through Number.
type Expr interface {
	// String renders the expression in a form Parse can read back.
	String() string

	// FreeSymbols returns the unbound symbols in first-occurrence order,
	// without duplicates.
	FreeSymbols() []Symbol

	// Substitute replaces every symbol present in the bindings with its
	// value and returns the resulting expression. Symbols absent from the
	// bindings are left untouched. The receiver is never modified.
	Substitute(b Bindings) Expr

	// Number returns the numeric value when the expression contains no
	// free symbols.
	Number() (float64, bool)

	// Equal reports structural equality.
	Equal(other Expr) bool
}

// Bindings maps symbols to concrete values for substitution.
type Bindings map[Symbol]float64

// Symbol is a named symbolic placeholder. Symbols are comparable and can
// be used as map keys.
type Symbol struct {
	name string
}

// NewSymbol creates a symbol with the given name.
func NewSymbol(name string) Symbol {
	return Symbol{name: name}
}

// Symbols creates multiple symbols at once.
func Symbols(names ...string) []Symbol {
	out := make([]Symbol, len(names))
	for i, name := range names {
		out[i] = Symbol{name: name}
	}
	return out
}

// Name returns the symbol's name.
func (s Symbol) Name() string { return s.name }

func (s Symbol) String() string { return s.name }

func (s Symbol) FreeSymbols() []Symbol { return []Symbol{s} }

func (s Symbol) Substitute(b Bindings) Expr {
	if v, ok := b[s]; ok {
		return Number(v)
	}
	return s
}

func (s Symbol) Number() (float64, bool) { return 0, false }

func (s Symbol) Equal(other Expr) bool {
	o, ok := other.(Symbol)
	return ok && o.name == s.name
}

// Number is a concrete numeric value.
type Number float64

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (n Number) FreeSymbols() []Symbol { return nil }

func (n Number) Substitute(Bindings) Expr { return n }

func (n Number) Number() (float64, bool) { return float64(n), true }

func (n Number) Equal(other Expr) bool {
	v, ok := other.Number()
	return ok && v == float64(n)
}

// Sum is an n-ary addition.
type Sum struct {
	Terms []Expr
}

// NewSum builds a sum, folding numeric terms. A sum of a single term
// collapses to the term itself, an empty sum to zero.
func NewSum(terms ...Expr) Expr {
	var flat []Expr
	numeric := 0.0
	sawNumeric := false
	for _, t := range terms {
		if v, ok := t.Number(); ok {
			numeric += v
			sawNumeric = true
			continue
		}
		if s, ok := t.(Sum); ok {
			flat = append(flat, s.Terms...)
			continue
		}
		flat = append(flat, t)
	}
	if sawNumeric && numeric != 0 {
		flat = append(flat, Number(numeric))
	}
	switch len(flat) {
	case 0:
		return Number(numeric)
	case 1:
		return flat[0]
	}
	return Sum{Terms: flat}
}

func (s Sum) String() string {
	parts := make([]string, len(s.Terms))
	for i, t := range s.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (s Sum) FreeSymbols() []Symbol { return collectSymbols(s.Terms) }

func (s Sum) Substitute(b Bindings) Expr {
	out := make([]Expr, len(s.Terms))
	for i, t := range s.Terms {
		out[i] = t.Substitute(b)
	}
	return NewSum(out...)
}

func (s Sum) Number() (float64, bool) { return evalAll(s.Terms, 0, func(acc, v float64) float64 { return acc + v }) }

func (s Sum) Equal(other Expr) bool {
	o, ok := other.(Sum)
	return ok && equalSlices(s.Terms, o.Terms)
}

// Product is an n-ary multiplication.
type Product struct {
	Factors []Expr
}

// NewProduct builds a product, folding numeric factors. A product with a
// zero factor collapses to zero, a single remaining factor to itself.
func NewProduct(factors ...Expr) Expr {
	var flat []Expr
	numeric := 1.0
	sawNumeric := false
	for _, f := range factors {
		if v, ok := f.Number(); ok {
			numeric *= v
			sawNumeric = true
			continue
		}
		if p, ok := f.(Product); ok {
			flat = append(flat, p.Factors...)
			continue
		}
		flat = append(flat, f)
	}
	if numeric == 0 {
		return Number(0)
	}
	if sawNumeric && numeric != 1 {
		// Numeric coefficient leads, matching the conventional rendering.
		flat = append([]Expr{Number(numeric)}, flat...)
	}
	switch len(flat) {
	case 0:
		return Number(numeric)
	case 1:
		return flat[0]
	}
	return Product{Factors: flat}
}

func (p Product) String() string {
	parts := make([]string, len(p.Factors))
	for i, f := range p.Factors {
		if _, ok := f.(Sum); ok {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}

func (p Product) FreeSymbols() []Symbol { return collectSymbols(p.Factors) }

func (p Product) Substitute(b Bindings) Expr {
	out := make([]Expr, len(p.Factors))
	for i, f := range p.Factors {
		out[i] = f.Substitute(b)
	}
	return NewProduct(out...)
}

func (p Product) Number() (float64, bool) {
	return evalAll(p.Factors, 1, func(acc, v float64) float64 { return acc * v })
}

func (p Product) Equal(other Expr) bool {
	o, ok := other.(Product)
	return ok && equalSlices(p.Factors, o.Factors)
}

// Neg is a negated expression.
type Neg struct {
	Operand Expr
}

// NewNeg builds a negation, folding numeric operands.
func NewNeg(operand Expr) Expr {
	if v, ok := operand.Number(); ok {
		return Number(-v)
	}
	if n, ok := operand.(Neg); ok {
		return n.Operand
	}
	return Neg{Operand: operand}
}

func (n Neg) String() string {
	if _, ok := n.Operand.(Sum); ok {
		return "-(" + n.Operand.String() + ")"
	}
	return "-" + n.Operand.String()
}

func (n Neg) FreeSymbols() []Symbol { return n.Operand.FreeSymbols() }

func (n Neg) Substitute(b Bindings) Expr { return NewNeg(n.Operand.Substitute(b)) }

func (n Neg) Number() (float64, bool) {
	v, ok := n.Operand.Number()
	return -v, ok
}

func (n Neg) Equal(other Expr) bool {
	o, ok := other.(Neg)
	return ok && n.Operand.Equal(o.Operand)
}

// collectSymbols merges child symbol lists preserving first-occurrence
// order across children.
func collectSymbols(children []Expr) []Symbol {
	var out []Symbol
	seen := make(map[Symbol]struct{})
	for _, c := range children {
		for _, s := range c.FreeSymbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func evalAll(children []Expr, init float64, combine func(acc, v float64) float64) (float64, bool) {
	acc := init
	for _, c := range children {
		v, ok := c.Number()
		if !ok {
			return 0, false
		}
		acc = combine(acc, v)
	}
	return acc, true
}

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
