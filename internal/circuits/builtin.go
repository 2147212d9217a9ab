package circuits

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/upsideon/orquestra-quantum/internal/sym"
)

// ErrUnknownGate is returned by BuiltinGate for names outside the builtin
// catalog.
var ErrUnknownGate = fmt.Errorf("unknown builtin gate")

// Nonparametric builtin gates. Each is ready to be placed on qubit lines,
// e.g. X.At(0).
//
// Matrix conventions: within a gate matrix the first qubit argument is
// the most significant bit of the basis index, so CNOT.At(control,
// target) flips the target when the control is 1.
var (
	I = fixedGate("I", 1, []complex128{
		1, 0,
		0, 1,
	})
	X = fixedGate("X", 1, []complex128{
		0, 1,
		1, 0,
	})
	Y = fixedGate("Y", 1, []complex128{
		0, -1i,
		1i, 0,
	})
	Z = fixedGate("Z", 1, []complex128{
		1, 0,
		0, -1,
	})
	H = fixedGate("H", 1, []complex128{
		complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0),
		complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0),
	})
	S = fixedGate("S", 1, []complex128{
		1, 0,
		0, 1i,
	})
	T = fixedGate("T", 1, []complex128{
		1, 0,
		0, cmplx.Exp(complex(0, math.Pi/4)),
	})
	CNOT = fixedGate("CNOT", 2, []complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
	})
	CZ = fixedGate("CZ", 2, []complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1,
	})
	SWAP = fixedGate("SWAP", 2, []complex128{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	})
	ISWAP = fixedGate("ISWAP", 2, []complex128{
		1, 0, 0, 0,
		0, 0, 1i, 0,
		0, 1i, 0, 0,
		0, 0, 0, 1,
	})
)

// RX is the rotation around the X axis by the given angle.
func RX(angle sym.Expr) Gate {
	return parametricGate("RX", 1, angle, func(p []float64) *mat.CDense {
		c := complex(math.Cos(p[0]/2), 0)
		js := complex(0, -math.Sin(p[0]/2))
		return mat.NewCDense(2, 2, []complex128{
			c, js,
			js, c,
		})
	})
}

// RY is the rotation around the Y axis by the given angle.
func RY(angle sym.Expr) Gate {
	return parametricGate("RY", 1, angle, func(p []float64) *mat.CDense {
		c := complex(math.Cos(p[0]/2), 0)
		s := complex(math.Sin(p[0]/2), 0)
		return mat.NewCDense(2, 2, []complex128{
			c, -s,
			s, c,
		})
	})
}

// RZ is the rotation around the Z axis by the given angle.
func RZ(angle sym.Expr) Gate {
	return parametricGate("RZ", 1, angle, func(p []float64) *mat.CDense {
		phase := cmplx.Exp(complex(0, p[0]/2))
		return mat.NewCDense(2, 2, []complex128{
			cmplx.Conj(phase), 0,
			0, phase,
		})
	})
}

// PHASE shifts the phase of the |1> state by the given angle.
func PHASE(angle sym.Expr) Gate {
	return parametricGate("PHASE", 1, angle, func(p []float64) *mat.CDense {
		return mat.NewCDense(2, 2, []complex128{
			1, 0,
			0, cmplx.Exp(complex(0, p[0])),
		})
	})
}

// CPHASE shifts the phase of the |11> state by the given angle.
func CPHASE(angle sym.Expr) Gate {
	return parametricGate("CPHASE", 2, angle, func(p []float64) *mat.CDense {
		m := identityMatrix(4)
		m.Set(3, 3, cmplx.Exp(complex(0, p[0])))
		return m
	})
}

// XX is the two-qubit rotation exp(-i*angle/2 * X⊗X).
func XX(angle sym.Expr) Gate {
	return parametricGate("XX", 2, angle, func(p []float64) *mat.CDense {
		c := complex(math.Cos(p[0]/2), 0)
		js := complex(0, -math.Sin(p[0]/2))
		return mat.NewCDense(4, 4, []complex128{
			c, 0, 0, js,
			0, c, js, 0,
			0, js, c, 0,
			js, 0, 0, c,
		})
	})
}

// YY is the two-qubit rotation exp(-i*angle/2 * Y⊗Y).
func YY(angle sym.Expr) Gate {
	return parametricGate("YY", 2, angle, func(p []float64) *mat.CDense {
		c := complex(math.Cos(p[0]/2), 0)
		js := complex(0, -math.Sin(p[0]/2))
		return mat.NewCDense(4, 4, []complex128{
			c, 0, 0, -js,
			0, c, js, 0,
			0, js, c, 0,
			-js, 0, 0, c,
		})
	})
}

// ZZ is the two-qubit rotation exp(-i*angle/2 * Z⊗Z).
func ZZ(angle sym.Expr) Gate {
	return parametricGate("ZZ", 2, angle, func(p []float64) *mat.CDense {
		neg := cmplx.Exp(complex(0, -p[0]/2))
		pos := cmplx.Exp(complex(0, p[0]/2))
		return mat.NewCDense(4, 4, []complex128{
			neg, 0, 0, 0,
			0, pos, 0, 0,
			0, 0, pos, 0,
			0, 0, 0, neg,
		})
	})
}

// BuiltinGate looks up a gate by catalog name, applying the given
// parameters for parametric gates. It returns ErrUnknownGate for names
// outside the catalog, which callers (e.g. deserialization) use to fall
// through to custom gate definitions.
func BuiltinGate(name string, params ...sym.Expr) (Gate, error) {
	if g, ok := nonParametricByName[name]; ok {
		if len(params) != 0 {
			return nil, fmt.Errorf("gate %s takes no parameters, got %d", name, len(params))
		}
		return g, nil
	}
	factory, ok := parametricByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGate, name)
	}
	if len(params) != 1 {
		return nil, fmt.Errorf("gate %s takes exactly one parameter, got %d", name, len(params))
	}
	return factory(params[0]), nil
}

var nonParametricByName = map[string]Gate{
	"I": I, "X": X, "Y": Y, "Z": Z, "H": H, "S": S, "T": T,
	"CNOT": CNOT, "CZ": CZ, "SWAP": SWAP, "ISWAP": ISWAP,
}

var parametricByName = map[string]func(angle sym.Expr) Gate{
	"RX": RX, "RY": RY, "RZ": RZ, "PHASE": PHASE,
	"CPHASE": CPHASE, "XX": XX, "YY": YY, "ZZ": ZZ,
}

func fixedGate(name string, nQubits int, data []complex128) Gate {
	dim := 1 << nQubits
	return matrixFactoryGate{
		name:    name,
		nQubits: nQubits,
		factory: func([]float64) *mat.CDense {
			return mat.NewCDense(dim, dim, append([]complex128(nil), data...))
		},
	}
}

func parametricGate(name string, nQubits int, angle sym.Expr, factory func(params []float64) *mat.CDense) Gate {
	return matrixFactoryGate{
		name:    name,
		nQubits: nQubits,
		params:  []sym.Expr{angle},
		factory: factory,
	}
}
