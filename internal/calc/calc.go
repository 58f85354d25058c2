// Package calc implements the arithmetic behind the add and calculate tools.
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Operation names accepted by Calculate.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

// Operations lists the accepted operation names in display order.
var Operations = []string{OpAdd, OpSubtract, OpMultiply, OpDivide}

var (
	// ErrDivideByZero is returned by Calculate for a divide with b == 0.
	ErrDivideByZero = errors.New("calc: cannot divide by zero")
	// ErrUnknownOperation is returned for an operation not in Operations.
	ErrUnknownOperation = errors.New("calc: unknown operation")
)

// Add returns a + b.
func Add(a, b float64) float64 { return a + b }

// Calculate applies operation to a and b.
func Calculate(operation string, a, b float64) (float64, error) {
	switch operation {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
}

// Format renders v the way a JavaScript client expects to see a number:
// shortest round-trip digits, no exponent, "Infinity" and "NaN" spelled out.
func Format(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
