package protocore

// value.go exposes the embedder-facing integer arithmetic surface
// SPEC_FULL.md §3 supplements onto spec.md's base type contract:
// compare/negate/abs, the bitwise family, and the combined divmod
// operation, all implemented in terms of internal/valueword's small-int
// fast path and internal/bignum's arbitrary-precision slow path — the
// same two-tier split original_source/core/Integer.cpp uses (its
// "FASTEST PATH" embedded-immediate check, falling through to a
// TempBignum for anything that overflows or is already a LargeInteger).
// It also exposes RawBufferPointer, the Go analogue of
// ProtoExternalBuffer.getRawPointerIfExternalBuffer.
//
// © 2025 protocore authors. MIT License.

import (
	"unsafe"

	"github.com/Voskan/protocore/internal/bignum"
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/external"
	"github.com/Voskan/protocore/internal/valueword"
)

// Value is a single protocore value word, re-exported at the public
// boundary so embedders never need to import internal/valueword.
type Value = valueword.Handle

// Allocator is the cell-allocation seam every arithmetic operation here
// that can produce a heap LargeInteger needs. Space implements it.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

// invalidConversionHook is the optional extra an Allocator can implement to
// receive the invalid-conversion callback (SPEC_FULL.md §4 Open Question 5,
// WithInvalidConversionCallback). Space implements it by reading its
// configured InvalidConversionFunc; an Allocator that doesn't implement it
// simply gets no substitution opportunity and the original WrongKind error.
type invalidConversionHook interface {
	InvalidConversion(from, to string) (Value, bool)
}

// SmallInt encodes v as an embedded small integer, ok is false if v falls
// outside the small-int range and must instead be built as a heap
// LargeInteger via Add/Sub/Mul's own fallback (there is no public
// constructor for a LargeInteger directly; it only ever arises as an
// arithmetic result).
func SmallInt(v int64) (Value, bool) { return valueword.EncodeSmallInt(v) }

// IsNone reports whether v is the none singleton.
func IsNone(v Value) bool { return valueword.IsNone(v) }

// asBignum coerces h to a bignum.Bignum. If h is not an integer and alloc
// implements invalidConversionHook, the embedder's callback is given one
// chance to substitute a value before WrongKind is reported (SPEC_FULL.md §4
// Open Question 5) — every cross-kind coercion in this file routes through
// here uniformly rather than handling the callback ad hoc per operator.
func asBignum(alloc Allocator, h Value, op string) (*bignum.Bignum, error) {
	b, ok := bignum.ToBignum(h)
	if ok {
		return b, nil
	}
	if hook, ok := alloc.(invalidConversionHook); ok {
		if sub, ok := hook.InvalidConversion(valueword.TagOf(h).String(), "integer"); ok {
			if sb, ok := bignum.ToBignum(sub); ok {
				return sb, nil
			}
		}
	}
	return nil, newError(WrongKind, "%s: operand is not an integer (tag %s)", op, valueword.TagOf(h))
}

// Compare returns -1, 0, or 1 per the usual ordering contract. Both
// operands must be integers (small or large).
func Compare(alloc Allocator, l, r Value) (int, error) {
	lb, err := asBignum(alloc, l, "compare")
	if err != nil {
		return 0, err
	}
	rb, err := asBignum(alloc, r, "compare")
	if err != nil {
		return 0, err
	}
	return bignum.Compare(lb, rb), nil
}

// Add implements integer addition with a small-int fast path: both
// operands fit 54 bits, so their sum cannot overflow int64, and the
// result is re-checked against the small-int range before falling back
// to the bignum slow path (mirrors Integer::add's FASTEST PATH / SLOW
// PATH split, minus the double path this runtime has no use for).
func Add(alloc Allocator, l, r Value) (Value, error) {
	if lv, ok := valueword.AsSmallInt(l); ok {
		if rv, ok2 := valueword.AsSmallInt(r); ok2 {
			if h, ok3 := valueword.EncodeSmallInt(lv + rv); ok3 {
				return h, nil
			}
		}
	}
	lb, err := asBignum(alloc, l, "add")
	if err != nil {
		return valueword.None, err
	}
	rb, err := asBignum(alloc, r, "add")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Add(lb, rb)), nil
}

// Sub implements integer subtraction, same fast-path shape as Add.
func Sub(alloc Allocator, l, r Value) (Value, error) {
	if lv, ok := valueword.AsSmallInt(l); ok {
		if rv, ok2 := valueword.AsSmallInt(r); ok2 {
			if h, ok3 := valueword.EncodeSmallInt(lv - rv); ok3 {
				return h, nil
			}
		}
	}
	lb, err := asBignum(alloc, l, "subtract")
	if err != nil {
		return valueword.None, err
	}
	rb, err := asBignum(alloc, r, "subtract")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Sub(lb, rb)), nil
}

// Mul implements integer multiplication. Two small ints can still
// overflow int64 (2^53 * 2^53 exceeds 2^63), so there is no safe int64
// fast path here; every multiplication routes through the magnitude-
// vector multiply and demotes back to a small int when the product fits.
func Mul(alloc Allocator, l, r Value) (Value, error) {
	lb, err := asBignum(alloc, l, "multiply")
	if err != nil {
		return valueword.None, err
	}
	rb, err := asBignum(alloc, r, "multiply")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Mul(lb, rb)), nil
}

// DivMod implements the combined divmod operation (core/Integer.cpp),
// truncating toward zero with the remainder's sign matching the dividend
// (SPEC_FULL.md §4 Open Question 3). A zero divisor reports
// ErrDivideByZero rather than panicking, since zero is a value an
// embedder-supplied divisor can legitimately carry at runtime.
func DivMod(alloc Allocator, dividend, divisor Value) (quotient, remainder Value, err error) {
	db, err := asBignum(alloc, dividend, "divmod")
	if err != nil {
		return valueword.None, valueword.None, err
	}
	vb, err := asBignum(alloc, divisor, "divmod")
	if err != nil {
		return valueword.None, valueword.None, err
	}
	if vb.IsZero() {
		return valueword.None, valueword.None, ErrDivideByZero
	}
	q, r := bignum.DivMod(db, vb)
	return bignum.FromBignum(alloc, q), bignum.FromBignum(alloc, r), nil
}

// Divide returns DivMod's quotient only.
func Divide(alloc Allocator, l, r Value) (Value, error) {
	q, _, err := DivMod(alloc, l, r)
	return q, err
}

// Modulo returns DivMod's remainder only.
func Modulo(alloc Allocator, l, r Value) (Value, error) {
	_, rem, err := DivMod(alloc, l, r)
	return rem, err
}

// Negate returns -v.
func Negate(alloc Allocator, v Value) (Value, error) {
	b, err := asBignum(alloc, v, "negate")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Negate(b)), nil
}

// Abs returns |v|.
func Abs(alloc Allocator, v Value) (Value, error) {
	b, err := asBignum(alloc, v, "abs")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Abs(b)), nil
}

// BitwiseAnd/Or/Xor/Not and ShiftLeft/Right implement the bitwise family
// (SPEC_FULL.md §3) over the full integer range via internal/bignum's
// two's-complement views — unlike original_source, which only supports
// these for small integers and throws for LargeIntegers.

func BitwiseAnd(alloc Allocator, l, r Value) (Value, error) {
	lb, err := asBignum(alloc, l, "bitwiseAnd")
	if err != nil {
		return valueword.None, err
	}
	rb, err := asBignum(alloc, r, "bitwiseAnd")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.And(lb, rb)), nil
}

func BitwiseOr(alloc Allocator, l, r Value) (Value, error) {
	lb, err := asBignum(alloc, l, "bitwiseOr")
	if err != nil {
		return valueword.None, err
	}
	rb, err := asBignum(alloc, r, "bitwiseOr")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Or(lb, rb)), nil
}

func BitwiseXor(alloc Allocator, l, r Value) (Value, error) {
	lb, err := asBignum(alloc, l, "bitwiseXor")
	if err != nil {
		return valueword.None, err
	}
	rb, err := asBignum(alloc, r, "bitwiseXor")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Xor(lb, rb)), nil
}

func BitwiseNot(alloc Allocator, v Value) (Value, error) {
	b, err := asBignum(alloc, v, "bitwiseNot")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.Not(b)), nil
}

// ShiftLeft/ShiftRight reject a negative amount with ArgumentMismatch
// rather than panicking (original_source's own shiftLeft/Right throw
// std::invalid_argument for the same case).
func ShiftLeft(alloc Allocator, v Value, amount int) (Value, error) {
	if amount < 0 {
		return valueword.None, newError(ArgumentMismatch, "shiftLeft: negative amount %d", amount)
	}
	b, err := asBignum(alloc, v, "shiftLeft")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.ShiftLeft(b, amount)), nil
}

func ShiftRight(alloc Allocator, v Value, amount int) (Value, error) {
	if amount < 0 {
		return valueword.None, newError(ArgumentMismatch, "shiftRight: negative amount %d", amount)
	}
	b, err := asBignum(alloc, v, "shiftRight")
	if err != nil {
		return valueword.None, err
	}
	return bignum.FromBignum(alloc, bignum.ShiftRight(b, amount)), nil
}

// RawBufferPointer returns an external buffer's stable segment address
// (ProtoExternalBuffer.getRawPointerIfExternalBuffer), or WrongKind if v
// is not an external buffer.
func RawBufferPointer(v Value) (unsafe.Pointer, error) {
	if valueword.TagOf(v) != valueword.TagExternalBuffer {
		return nil, newError(WrongKind, "RawBufferPointer: not an external buffer (tag %s)", valueword.TagOf(v))
	}
	return external.GetRawPointer(v), nil
}
