package bignum_test

import (
	"math/big"
	"testing"

	"github.com/Voskan/protocore/internal/bignum"
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

type testAlloc struct{ pool *cellpool.Pool }

func (a testAlloc) AllocCell() *cellpool.Cell {
	head, n := a.pool.RefillBatch(1)
	if n != 1 {
		panic("out of cells")
	}
	return head
}

func big64(vals ...uint64) *big.Int {
	out := new(big.Int)
	for i := len(vals) - 1; i >= 0; i-- {
		out.Lsh(out, 64)
		out.Or(out, new(big.Int).SetUint64(vals[i]))
	}
	return out
}

func toBigInt(b *bignum.Bignum) *big.Int {
	v := big64(b.Magnitude...)
	if b.Negative {
		v.Neg(v)
	}
	return v
}

func TestFromInt64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40), valueword.MaxSmallInt, valueword.MinSmallInt} {
		b := bignum.FromInt64(v)
		got := toBigInt(b)
		if got.Cmp(big.NewInt(v)) != 0 {
			t.Fatalf("FromInt64(%d) = %s", v, got)
		}
	}
}

func TestFromBignumDemotesToSmallInt(t *testing.T) {
	pool := cellpool.NewPool(0)
	a := testAlloc{pool}

	h := bignum.FromBignum(a, bignum.FromInt64(42))
	if got, ok := valueword.AsSmallInt(h); !ok || got != 42 {
		t.Fatalf("expected small-int demotion, got ok=%v val=%v", ok, got)
	}

	big := bignum.Add(bignum.FromInt64(valueword.MaxSmallInt), bignum.FromInt64(1))
	h2 := bignum.FromBignum(a, big)
	if valueword.TagOf(h2) != valueword.TagLargeInteger {
		t.Fatalf("expected overflow past MaxSmallInt to stay a LargeInteger")
	}
	loaded := bignum.Load(h2)
	if toBigInt(loaded).Cmp(big64(uint64(valueword.MaxSmallInt)+1)) != 0 {
		t.Fatalf("loaded value mismatch: %s", toBigInt(loaded))
	}
}

func TestAddSubMulAgainstMathBig(t *testing.T) {
	cases := []struct{ l, r int64 }{
		{0, 0}, {1, 2}, {-1, 2}, {1, -2}, {-5, -7},
		{1 << 62, 1 << 62}, {-(1 << 62), 1 << 62}, {1 << 62, -(1 << 62)},
	}
	for _, c := range cases {
		l, r := bignum.FromInt64(c.l), bignum.FromInt64(c.r)
		wantAdd := new(big.Int).Add(big.NewInt(c.l), big.NewInt(c.r))
		if got := toBigInt(bignum.Add(l, r)); got.Cmp(wantAdd) != 0 {
			t.Fatalf("Add(%d,%d) = %s, want %s", c.l, c.r, got, wantAdd)
		}
		wantSub := new(big.Int).Sub(big.NewInt(c.l), big.NewInt(c.r))
		if got := toBigInt(bignum.Sub(l, r)); got.Cmp(wantSub) != 0 {
			t.Fatalf("Sub(%d,%d) = %s, want %s", c.l, c.r, got, wantSub)
		}
		wantMul := new(big.Int).Mul(big.NewInt(c.l), big.NewInt(c.r))
		if got := toBigInt(bignum.Mul(l, r)); got.Cmp(wantMul) != 0 {
			t.Fatalf("Mul(%d,%d) = %s, want %s", c.l, c.r, got, wantMul)
		}
	}
}

func TestMulProducesValuesBeyondOneLimb(t *testing.T) {
	l := bignum.FromInt64(1 << 40)
	r := bignum.FromInt64(1 << 40)
	got := toBigInt(bignum.Mul(l, r))
	want := new(big.Int).Mul(big.NewInt(1<<40), big.NewInt(1<<40))
	if got.Cmp(want) != 0 {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct{ l, r int64 }{
		{1, 2}, {2, 1}, {1, 1}, {-1, 1}, {1, -1}, {-5, -3}, {-3, -5},
	}
	for _, c := range cases {
		got := bignum.Compare(bignum.FromInt64(c.l), bignum.FromInt64(c.r))
		want := 0
		if c.l < c.r {
			want = -1
		} else if c.l > c.r {
			want = 1
		}
		if got != want {
			t.Fatalf("Compare(%d,%d) = %d, want %d", c.l, c.r, got, want)
		}
	}
}

func TestDivModTruncatesTowardZeroRemainderMatchesDividendSign(t *testing.T) {
	cases := []struct{ dividend, divisor int64 }{
		{7, 2}, {-7, 2}, {7, -2}, {-7, -2}, {100, 7}, {-100, 7},
	}
	for _, c := range cases {
		q, r := bignum.DivMod(bignum.FromInt64(c.dividend), bignum.FromInt64(c.divisor))
		wantQ := new(big.Int).Quo(big.NewInt(c.dividend), big.NewInt(c.divisor))
		wantR := new(big.Int).Rem(big.NewInt(c.dividend), big.NewInt(c.divisor))
		if got := toBigInt(q); got.Cmp(wantQ) != 0 {
			t.Fatalf("quotient(%d,%d) = %s, want %s", c.dividend, c.divisor, got, wantQ)
		}
		if got := toBigInt(r); got.Cmp(wantR) != 0 {
			t.Fatalf("remainder(%d,%d) = %s, want %s", c.dividend, c.divisor, got, wantR)
		}
	}
}

func TestDivModMultiLimbDivisor(t *testing.T) {
	dividend := bignum.Mul(bignum.FromInt64(1<<62), bignum.FromInt64(1<<62))
	divisor := bignum.Add(bignum.FromInt64(1<<62), bignum.FromInt64(7))
	q, r := bignum.DivMod(dividend, divisor)

	bigDividend := toBigInt(dividend)
	bigDivisor := toBigInt(divisor)
	wantQ := new(big.Int).Quo(bigDividend, bigDivisor)
	wantR := new(big.Int).Rem(bigDividend, bigDivisor)
	if got := toBigInt(q); got.Cmp(wantQ) != 0 {
		t.Fatalf("quotient = %s, want %s", got, wantQ)
	}
	if got := toBigInt(r); got.Cmp(wantR) != 0 {
		t.Fatalf("remainder = %s, want %s", got, wantR)
	}
}

func TestNegateAbsSign(t *testing.T) {
	v := bignum.FromInt64(-42)
	if bignum.Negate(v).Sign() != 1 {
		t.Fatalf("expected Negate(-42) to be positive")
	}
	if bignum.Abs(v).Sign() != 1 {
		t.Fatalf("expected Abs(-42) to be positive")
	}
	if bignum.FromInt64(0).Sign() != 0 {
		t.Fatalf("expected Sign(0) == 0")
	}
}

func TestBitwiseFamilyAgainstMathBig(t *testing.T) {
	cases := []struct{ l, r int64 }{
		{0b1010, 0b0110}, {-1, 0b1111}, {-5, 3}, {12345, -6789},
	}
	for _, c := range cases {
		l, r := bignum.FromInt64(c.l), bignum.FromInt64(c.r)
		if got := toBigInt(bignum.And(l, r)); got.Cmp(new(big.Int).And(big.NewInt(c.l), big.NewInt(c.r))) != 0 {
			t.Fatalf("And(%d,%d) = %s", c.l, c.r, got)
		}
		if got := toBigInt(bignum.Or(l, r)); got.Cmp(new(big.Int).Or(big.NewInt(c.l), big.NewInt(c.r))) != 0 {
			t.Fatalf("Or(%d,%d) = %s", c.l, c.r, got)
		}
		if got := toBigInt(bignum.Xor(l, r)); got.Cmp(new(big.Int).Xor(big.NewInt(c.l), big.NewInt(c.r))) != 0 {
			t.Fatalf("Xor(%d,%d) = %s", c.l, c.r, got)
		}
	}
	for _, v := range []int64{0, 1, -1, 42, -42} {
		got := toBigInt(bignum.Not(bignum.FromInt64(v)))
		want := new(big.Int).Not(big.NewInt(v))
		if got.Cmp(want) != 0 {
			t.Fatalf("Not(%d) = %s, want %s", v, got, want)
		}
	}
}

func TestShiftLeftRight(t *testing.T) {
	for _, v := range []int64{1, -1, 42, -42, 1 << 40, -(1 << 40)} {
		for _, amount := range []int{0, 1, 5, 64, 70, 130} {
			gotL := toBigInt(bignum.ShiftLeft(bignum.FromInt64(v), amount))
			wantL := new(big.Int).Lsh(big.NewInt(v), uint(amount))
			if gotL.Cmp(wantL) != 0 {
				t.Fatalf("ShiftLeft(%d,%d) = %s, want %s", v, amount, gotL, wantL)
			}
			gotR := toBigInt(bignum.ShiftRight(bignum.FromInt64(v), amount))
			wantR := new(big.Int).Rsh(big.NewInt(v), uint(amount))
			if gotR.Cmp(wantR) != 0 {
				t.Fatalf("ShiftRight(%d,%d) = %s, want %s", v, amount, gotR, wantR)
			}
		}
	}
}

func TestTextBase(t *testing.T) {
	cases := []struct {
		v    int64
		base int
	}{
		{0, 10}, {255, 16}, {-255, 16}, {100, 2}, {-100, 2}, {123456789, 36},
	}
	for _, c := range cases {
		got := bignum.FromInt64(c.v).Text(c.base)
		want := big.NewInt(c.v).Text(c.base)
		if got != want {
			t.Fatalf("Text(%d, base %d) = %q, want %q", c.v, c.base, got, want)
		}
	}
}

func TestToBignumFromSmallAndHeapHandles(t *testing.T) {
	pool := cellpool.NewPool(0)
	a := testAlloc{pool}

	smallHandle, _ := valueword.EncodeSmallInt(7)
	b, ok := bignum.ToBignum(smallHandle)
	if !ok || toBigInt(b).Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected small-int handle to convert, got ok=%v b=%v", ok, b)
	}

	big := bignum.Add(bignum.FromInt64(valueword.MaxSmallInt), bignum.FromInt64(100))
	h := bignum.FromBignum(a, big)
	b2, ok := bignum.ToBignum(h)
	if !ok || toBigInt(b2).Cmp(toBigInt(big)) != 0 {
		t.Fatalf("expected heap LargeInteger handle to convert, got ok=%v", ok)
	}
}

func TestLargeIntegerDescriptorFreedOnSweep(t *testing.T) {
	pool := cellpool.NewPool(0)
	a := testAlloc{pool}

	big := bignum.Add(bignum.FromInt64(valueword.MaxSmallInt), bignum.FromInt64(1))
	h := bignum.FromBignum(a, big)

	roots := gc.RootSet(func(visit func(valueword.Handle)) {})
	live := gc.Mark(a, roots)
	reclaimed, n := gc.Sweep(pool, live)
	if n == 0 {
		t.Fatalf("expected the unrooted LargeInteger descriptor to be swept")
	}
	pool.Recycle(reclaimed, n)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Load on a finalized descriptor to panic")
		}
	}()
	bignum.Load(h)
}
