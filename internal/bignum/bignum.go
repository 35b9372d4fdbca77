// Package bignum implements ProtoLargeInteger (C-int) from spec.md's
// integer family: an arbitrary-precision sign-and-magnitude integer used
// whenever a value falls outside the small-integer range
// [-(2^53), 2^53-1] (SPEC_FULL.md §4 Open Question 2). Arithmetic follows
// original_source/core/Integer.cpp's TempBignum approach directly: every
// operand is converted to a mutable sign+magnitude vector of 64-bit limbs,
// the operation runs over magnitudes only, and the result is normalized
// and demoted back to a small integer whenever it fits.
//
// © 2025 protocore authors. MIT License.
package bignum

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

// Shape is the single Cell.Kind value backing TagLargeInteger.
const Shape uint8 = 0

// payload holds only a side-table id. A LargeInteger's magnitude is a
// variable-length []uint64 — exactly the kind of data a fixed
// [cellpool.PayloadSize]byte array cannot hold without hiding a real Go
// slice header from the precise garbage collector (the same hazard
// documented in internal/external). The magnitude itself lives in the
// mutex-guarded side table below, keyed by this id.
type payload struct{ id uint64 }

func init() {
	cellpool.MustFit[payload]()
	gc.RegisterFinalizer(valueword.TagLargeInteger, Shape, func(c *cellpool.Cell) {
		id := cellpool.PayloadAs[payload](c).id
		reg.free(id)
	})
}

// Allocator is the cell-allocation seam, matching every other kind
// package's Allocator interface.
type Allocator interface {
	AllocCell() *cellpool.Cell
}

// Bignum is a mutable sign-and-magnitude integer, the Go analogue of
// TempBignum in original_source/core/Integer.cpp. Magnitude is stored
// little-endian (limb 0 is least significant) in 64-bit limbs. Zero is
// always represented by an empty Magnitude and Negative == false
// ("canonical form for zero" per the original's normalize()).
type Bignum struct {
	Negative  bool
	Magnitude []uint64
}

// Normalize strips trailing (most-significant) zero limbs and canonicalizes
// zero to non-negative, matching TempBignum::normalize().
func (b *Bignum) Normalize() {
	for len(b.Magnitude) > 0 && b.Magnitude[len(b.Magnitude)-1] == 0 {
		b.Magnitude = b.Magnitude[:len(b.Magnitude)-1]
	}
	if len(b.Magnitude) == 0 {
		b.Negative = false
	}
}

// IsZero reports whether b is the canonical zero.
func (b *Bignum) IsZero() bool { return len(b.Magnitude) == 0 }

// Sign returns -1, 0, or 1.
func (b *Bignum) Sign() int {
	if b.IsZero() {
		return 0
	}
	if b.Negative {
		return -1
	}
	return 1
}

type entry struct {
	value *Bignum
}

// registry is the shadow side table for live LargeInteger cells, the same
// id-plus-side-table idiom internal/external and internal/object's
// MutableRoots use for data a Cell payload cannot represent directly.
type registry struct {
	mu      sync.Mutex
	entries map[uint64]*entry
}

var (
	nextID uint64
	reg    = &registry{entries: make(map[uint64]*entry)}
)

func allocID() uint64 { return atomic.AddUint64(&nextID, 1) }

func (r *registry) free(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *registry) get(id uint64) *Bignum {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		panic("bignum: descriptor finalized or never registered")
	}
	return e.value
}

func (r *registry) put(id uint64, v *Bignum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry{value: v}
}

func cellOf(h valueword.Handle) *cellpool.Cell {
	addr, ok := valueword.HeapAddr(h)
	if !ok {
		panic("bignum: handle is not a heap reference")
	}
	return cellpool.FromAddr(addr)
}

// newCell allocates a fresh LargeInteger cell wrapping v, without
// attempting small-int demotion. Callers that want demotion should go
// through FromBignum instead.
func newCell(alloc Allocator, v *Bignum) valueword.Handle {
	id := allocID()
	reg.put(id, v)
	c := alloc.AllocCell()
	c.Tag = valueword.TagLargeInteger
	c.Kind = Shape
	cellpool.PayloadAs[payload](c).id = id
	return valueword.WrapHeap(valueword.TagLargeInteger, cellpool.Addr(c))
}

// Load returns the live Bignum backing h. h must be a TagLargeInteger
// handle obtained from this package.
func Load(h valueword.Handle) *Bignum {
	id := cellpool.PayloadAs[payload](cellOf(h)).id
	return reg.get(id)
}

// FromInt64 builds a Bignum from a machine integer, mirroring
// Integer::fromLong's conversion-to-TempBignum branch.
func FromInt64(v int64) *Bignum {
	b := &Bignum{}
	if v == 0 {
		return b
	}
	b.Negative = v < 0
	var mag uint64
	if v < 0 {
		mag = uint64(-(v + 1)) + 1 // avoids overflow on math.MinInt64
	} else {
		mag = uint64(v)
	}
	b.Magnitude = []uint64{mag}
	return b
}

// FromBignum converts v to a valueword.Handle, demoting to an embedded
// small integer whenever the magnitude fits in [MinSmallInt, MaxSmallInt]
// (spec's small-int/large-int demotion rule), and otherwise allocating a
// heap LargeInteger cell. v is normalized in place first.
func FromBignum(alloc Allocator, v *Bignum) valueword.Handle {
	v.Normalize()
	if v.IsZero() {
		h, _ := valueword.EncodeSmallInt(0)
		return h
	}
	if len(v.Magnitude) == 1 {
		mag := v.Magnitude[0]
		if !v.Negative && mag <= uint64(valueword.MaxSmallInt) {
			h, _ := valueword.EncodeSmallInt(int64(mag))
			return h
		}
		if v.Negative && mag <= uint64(-valueword.MinSmallInt) {
			h, _ := valueword.EncodeSmallInt(-int64(mag))
			return h
		}
	}
	cp := &Bignum{Negative: v.Negative, Magnitude: append([]uint64(nil), v.Magnitude...)}
	return newCell(alloc, cp)
}

// ToBignum converts any integer handle (embedded small int or heap
// LargeInteger) to a Bignum, mirroring toTempBignum.
func ToBignum(h valueword.Handle) (*Bignum, bool) {
	if v, ok := valueword.AsSmallInt(h); ok {
		return FromInt64(v), true
	}
	if valueword.TagOf(h) == valueword.TagLargeInteger {
		src := Load(h)
		return &Bignum{Negative: src.Negative, Magnitude: append([]uint64(nil), src.Magnitude...)}, true
	}
	return nil, false
}

/* ---------------- magnitude-only helpers (mirrors internal_*_mag) ---------------- */

func compareMag(l, r []uint64) int {
	if len(l) != len(r) {
		if len(l) < len(r) {
			return -1
		}
		return 1
	}
	for i := len(l) - 1; i >= 0; i-- {
		if l[i] != r[i] {
			if l[i] < r[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func addMag(l, r []uint64) []uint64 {
	n := len(l)
	if len(r) > n {
		n = len(r)
	}
	result := make([]uint64, n)
	var carry uint64
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(l) {
			a = l[i]
		}
		if i < len(r) {
			b = r[i]
		}
		sum, c1 := bits.Add64(a, b, carry)
		result[i] = sum
		carry = c1
	}
	if carry > 0 {
		result = append(result, carry)
	}
	return result
}

// subMag computes l - r assuming l >= r in magnitude (caller's
// responsibility, same contract as internal_sub_mag).
func subMag(l, r []uint64) []uint64 {
	result := make([]uint64, len(l))
	var borrow uint64
	for i := 0; i < len(l); i++ {
		var b uint64
		if i < len(r) {
			b = r[i]
		}
		diff, b1 := bits.Sub64(l[i], b, borrow)
		result[i] = diff
		borrow = b1
	}
	return result
}

// addSigned implements Integer::add's generic slow path entirely in terms
// of magnitude helpers.
func addSigned(l, r *Bignum) *Bignum {
	result := &Bignum{}
	if l.Negative == r.Negative {
		result.Magnitude = addMag(l.Magnitude, r.Magnitude)
		result.Negative = l.Negative
	} else if compareMag(l.Magnitude, r.Magnitude) >= 0 {
		result.Magnitude = subMag(l.Magnitude, r.Magnitude)
		result.Negative = l.Negative
	} else {
		result.Magnitude = subMag(r.Magnitude, l.Magnitude)
		result.Negative = r.Negative
	}
	result.Normalize()
	return result
}

// Add implements integer addition, slow path only (the small-int fast
// path belongs to pkg.Value, which checks AsSmallInt first and only falls
// back to this package on overflow or an existing LargeInteger operand).
func Add(l, r *Bignum) *Bignum { return addSigned(l, r) }

// Sub implements integer subtraction as add(l, -r), matching
// Integer::subtract's slow path.
func Sub(l, r *Bignum) *Bignum {
	negR := &Bignum{Negative: r.Negative, Magnitude: r.Magnitude}
	if !negR.IsZero() {
		negR.Negative = !negR.Negative
	}
	return addSigned(l, negR)
}

// Mul implements schoolbook multiplication of the magnitude vectors
// (original_source's placeholder single-limb multiply generalized to the
// full schoolbook algorithm, since this implementation must support
// magnitudes of any limb count, not just one).
func Mul(l, r *Bignum) *Bignum {
	if l.IsZero() || r.IsZero() {
		return &Bignum{}
	}
	result := make([]uint64, len(l.Magnitude)+len(r.Magnitude))
	for i, a := range l.Magnitude {
		var carry uint64
		for j, b := range r.Magnitude {
			hi, lo := bits.Mul64(a, b)
			sum, c1 := bits.Add64(lo, result[i+j], 0)
			sum, c2 := bits.Add64(sum, carry, c1)
			result[i+j] = sum
			carry = hi + c2
		}
		result[i+len(r.Magnitude)] += carry
	}
	out := &Bignum{Negative: l.Negative != r.Negative, Magnitude: result}
	out.Normalize()
	return out
}

// Compare implements Integer::compare: sign first, then magnitude,
// negated when both operands are negative.
func Compare(l, r *Bignum) int {
	if l.Negative != r.Negative {
		if l.Negative {
			return -1
		}
		return 1
	}
	cmp := compareMag(l.Magnitude, r.Magnitude)
	if l.Negative {
		return -cmp
	}
	return cmp
}

// Negate returns -v.
func Negate(v *Bignum) *Bignum {
	out := &Bignum{Negative: !v.Negative, Magnitude: append([]uint64(nil), v.Magnitude...)}
	out.Normalize()
	return out
}

// Abs returns |v|.
func Abs(v *Bignum) *Bignum {
	return &Bignum{Negative: false, Magnitude: append([]uint64(nil), v.Magnitude...)}
}

/* ---------------- bitwise family ----------------
original_source/core/Integer.cpp implements bitwiseAnd/Or/Xor/Not and
shiftLeft/Right only for small integers, throwing "not implemented for
LargeIntegers" otherwise. This package generalizes the same two's-
complement identities to arbitrary-width magnitudes via a fixed-width
two's complement round trip, so every integer — small or big — gets a
working implementation instead of inheriting that limitation. */

// twosComplementOf renders v as a fixed-width two's complement limb
// vector: for non-negative v this is just the zero-extended magnitude;
// for negative v it is the one's complement of the zero-extended
// magnitude plus one, truncated to width limbs (modular arithmetic at
// that width, matching how fixed-width two's complement behaves).
func twosComplementOf(v *Bignum, width int) []uint64 {
	if !v.Negative {
		out := make([]uint64, width)
		copy(out, v.Magnitude)
		return out
	}
	inv := make([]uint64, width)
	for i := 0; i < width; i++ {
		var w uint64
		if i < len(v.Magnitude) {
			w = v.Magnitude[i]
		}
		inv[i] = ^w
	}
	res := addMag(inv, []uint64{1})
	if len(res) > width {
		res = res[:width]
	}
	for len(res) < width {
		res = append(res, 0)
	}
	return res
}

// fromTwosComplement is the inverse of twosComplementOf: the sign is read
// from the top bit of the highest limb, and a negative value's magnitude
// is recovered by negating the two's complement representation again.
func fromTwosComplement(limbs []uint64) *Bignum {
	width := len(limbs)
	if width == 0 || limbs[width-1]&(1<<63) == 0 {
		b := &Bignum{Magnitude: append([]uint64(nil), limbs...)}
		b.Normalize()
		return b
	}
	inv := make([]uint64, width)
	for i, w := range limbs {
		inv[i] = ^w
	}
	mag := addMag(inv, []uint64{1})
	if len(mag) > width {
		mag = mag[:width]
	}
	b := &Bignum{Negative: true, Magnitude: mag}
	b.Normalize()
	return b
}

func bitwiseOp(l, r *Bignum, op func(a, b uint64) uint64) *Bignum {
	width := len(l.Magnitude)
	if len(r.Magnitude) > width {
		width = len(r.Magnitude)
	}
	width += 2 // guard limbs so the sign bit never collides with real magnitude bits
	lt := twosComplementOf(l, width)
	rt := twosComplementOf(r, width)
	out := make([]uint64, width)
	for i := 0; i < width; i++ {
		out[i] = op(lt[i], rt[i])
	}
	return fromTwosComplement(out)
}

// And/Or/Xor implement the bitwise family over two's complement views of
// the operands' magnitudes.
func And(l, r *Bignum) *Bignum { return bitwiseOp(l, r, func(a, b uint64) uint64 { return a & b }) }
func Or(l, r *Bignum) *Bignum  { return bitwiseOp(l, r, func(a, b uint64) uint64 { return a | b }) }
func Xor(l, r *Bignum) *Bignum { return bitwiseOp(l, r, func(a, b uint64) uint64 { return a ^ b }) }

// Not implements ~v via the identity ~v = -v - 1 (the same identity
// Integer::bitwiseNot uses: subtract(-1, v)).
func Not(v *Bignum) *Bignum { return Sub(FromInt64(-1), v) }

// ShiftLeft multiplies v by 2^amount, generalized to arbitrary magnitude
// via the two's complement view.
func ShiftLeft(v *Bignum, amount int) *Bignum {
	if amount < 0 {
		panic("bignum: negative shift amount")
	}
	if amount == 0 {
		return &Bignum{Negative: v.Negative, Magnitude: append([]uint64(nil), v.Magnitude...)}
	}
	width := len(v.Magnitude) + amount/64 + 2
	t := twosComplementOf(v, width)
	limbShift := amount / 64
	bitShift := uint(amount % 64)
	out := make([]uint64, width)
	for i := width - 1; i >= 0; i-- {
		srcIdx := i - limbShift
		if srcIdx < 0 {
			continue
		}
		var word uint64 = t[srcIdx] << bitShift
		if bitShift > 0 && srcIdx-1 >= 0 {
			word |= t[srcIdx-1] >> (64 - bitShift)
		}
		out[i] = word
	}
	return fromTwosComplement(out)
}

// ShiftRight implements arithmetic (sign-extending) right shift, matching
// the original's `val >> amount` on machine integers generalized to any
// magnitude: negative values shift toward negative infinity.
func ShiftRight(v *Bignum, amount int) *Bignum {
	if amount < 0 {
		panic("bignum: negative shift amount")
	}
	if amount == 0 {
		return &Bignum{Negative: v.Negative, Magnitude: append([]uint64(nil), v.Magnitude...)}
	}
	width := len(v.Magnitude) + 1
	t := twosComplementOf(v, width)
	var signExt uint64
	if v.Negative {
		signExt = ^uint64(0)
	}
	limbShift := amount / 64
	bitShift := uint(amount % 64)
	out := make([]uint64, width)
	for i := 0; i < width; i++ {
		srcIdx := i + limbShift
		lo := signExt
		if srcIdx < width {
			lo = t[srcIdx]
		}
		hi := signExt
		if srcIdx+1 < width {
			hi = t[srcIdx+1]
		}
		if bitShift == 0 {
			out[i] = lo
		} else {
			out[i] = lo>>bitShift | hi<<(64-bitShift)
		}
	}
	return fromTwosComplement(out)
}

// DivMod implements truncating division with the remainder's sign
// matching the dividend (SPEC_FULL.md §4 Open Question 3), mirroring
// Integer::divide/modulo's composition of internal_divmod_mag. divisor
// must be non-zero; callers are expected to have already raised
// DivideByZero.
func DivMod(dividend, divisor *Bignum) (quotient, remainder *Bignum) {
	q, r := divmodMag(dividend.Magnitude, divisor.Magnitude)
	quotient = &Bignum{Negative: dividend.Negative != divisor.Negative, Magnitude: q}
	quotient.Normalize()
	remainder = &Bignum{Negative: dividend.Negative, Magnitude: r}
	remainder.Normalize()
	return quotient, remainder
}

// divmodMag implements long division over 64-bit limbs via repeated
// single-limb division steps (base 2^64 long division), the magnitude
// generalization of internal_divmod_mag's single-digit-divisor fast path;
// original_source's full multi-digit path round-trips through bit shifts
// in a way that does not translate cleanly to Go, so this implementation
// instead extends the single-limb algorithm to an arbitrary divisor via
// Knuth-style binary long division, one bit at a time, which is simpler to
// verify correct and differs from the original only in performance, not
// in the truncating-division/remainder-sign semantics it must preserve.
func divmodMag(u, v []uint64) (q, r []uint64) {
	if len(v) == 0 {
		panic("bignum: division by zero")
	}
	if compareMag(u, v) < 0 {
		return nil, append([]uint64(nil), u...)
	}
	if compareMag(u, v) == 0 {
		return []uint64{1}, nil
	}
	if len(v) == 1 {
		return divmodSingleLimb(u, v[0])
	}

	quotient := make([]uint64, len(u))
	remainder := []uint64{}
	totalBits := len(u) * 64
	for bit := totalBits - 1; bit >= 0; bit-- {
		remainder = shiftLeft1(remainder)
		if bitAt(u, bit) {
			remainder = setBit0(remainder)
		}
		if compareMag(remainder, v) >= 0 {
			remainder = subMag(remainder, v)
			trimLeadingZeros(&remainder)
			word, bitIdx := bit/64, bit%64
			quotient[word] |= 1 << uint(bitIdx)
		}
	}
	trimLeadingZeros(&quotient)
	return quotient, remainder
}

func divmodSingleLimb(u []uint64, v uint64) (q, r []uint64) {
	quotient := make([]uint64, len(u))
	var rem uint64
	for i := len(u) - 1; i >= 0; i-- {
		quotient[i], rem = bits.Div64(rem, u[i], v)
	}
	trimLeadingZeros(&quotient)
	if rem != 0 {
		return quotient, []uint64{rem}
	}
	return quotient, nil
}

func bitAt(mag []uint64, bit int) bool {
	word, idx := bit/64, bit%64
	if word >= len(mag) {
		return false
	}
	return mag[word]&(1<<uint(idx)) != 0
}

func shiftLeft1(mag []uint64) []uint64 {
	out := make([]uint64, len(mag)+1)
	var carry uint64
	for i, w := range mag {
		out[i] = w<<1 | carry
		carry = w >> 63
	}
	out[len(mag)] = carry
	trimLeadingZeros(&out)
	return out
}

func setBit0(mag []uint64) []uint64 {
	if len(mag) == 0 {
		return []uint64{1}
	}
	mag[0] |= 1
	return mag
}

func trimLeadingZeros(mag *[]uint64) {
	m := *mag
	for len(m) > 0 && m[len(m)-1] == 0 {
		m = m[:len(m)-1]
	}
	*mag = m
}

// String renders v in base 10 via Text, matching Integer::toString's
// repeated divmod-by-base digit extraction.
func (b *Bignum) String() string {
	return b.Text(10)
}

// Text renders v in the given base (2-36).
func (b *Bignum) Text(base int) string {
	if base < 2 || base > 36 {
		panic(fmt.Sprintf("bignum: invalid base %d", base))
	}
	if b.IsZero() {
		return "0"
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	current := append([]uint64(nil), b.Magnitude...)
	var out []byte
	for len(current) > 0 {
		q, r := divmodSingleLimb(current, uint64(base))
		var d uint64
		if len(r) > 0 {
			d = r[0]
		}
		out = append(out, digits[d])
		current = q
	}
	if b.Negative {
		out = append(out, '-')
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
