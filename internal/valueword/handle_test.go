package valueword

import "testing"

func TestSmallIntRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, MinSmallInt, MaxSmallInt, 123456789, -987654321}
	for _, v := range cases {
		h, ok := EncodeSmallInt(v)
		if !ok {
			t.Fatalf("EncodeSmallInt(%d) unexpectedly failed", v)
		}
		got, ok := AsSmallInt(h)
		if !ok || got != v {
			t.Fatalf("round-trip failed for %d: got %d ok=%v", v, got, ok)
		}
	}
}

func TestSmallIntOverflow(t *testing.T) {
	for _, v := range []int64{MaxSmallInt + 1, MinSmallInt - 1} {
		if _, ok := EncodeSmallInt(v); ok {
			t.Fatalf("expected EncodeSmallInt(%d) to fail", v)
		}
	}
}

func TestBoolRoundTrip(t *testing.T) {
	for _, b := range []bool{true, false} {
		h := EncodeBool(b)
		got, ok := AsBool(h)
		if !ok || got != b {
			t.Fatalf("bool round-trip failed for %v", b)
		}
	}
}

func TestNoneIsZero(t *testing.T) {
	if None != 0 {
		t.Fatalf("None must be the zero word")
	}
	if !IsNone(None) {
		t.Fatalf("IsNone(None) must be true")
	}
}

func TestRuneByteDateTimestampTimeDelta(t *testing.T) {
	r := EncodeRune('λ')
	if got, ok := AsRune(r); !ok || got != 'λ' {
		t.Fatalf("rune round-trip failed: %v %v", got, ok)
	}
	b := EncodeByte(0xAB)
	if got, ok := AsByte(b); !ok || got != 0xAB {
		t.Fatalf("byte round-trip failed")
	}
	d := EncodeDate(2026, 7, 30)
	if y, m, day, ok := AsDate(d); !ok || y != 2026 || m != 7 || day != 30 {
		t.Fatalf("date round-trip failed: %d %d %d %v", y, m, day, ok)
	}
	ts := EncodeTimestamp(1_700_000_000)
	if got, ok := AsTimestamp(ts); !ok || got != 1_700_000_000 {
		t.Fatalf("timestamp round-trip failed")
	}
	td := EncodeTimeDelta(-42)
	if got, ok := AsTimeDelta(td); !ok || got != -42 {
		t.Fatalf("time-delta round-trip failed: %d", got)
	}
}

func TestHeapWrapUnwrap(t *testing.T) {
	addr := uintptr(0x1000) // 64-byte aligned fake address
	for _, tag := range []Tag{TagList, TagTuple, TagString, TagSparseMap, TagThread} {
		h := WrapHeap(tag, addr)
		if TagOf(h) != tag {
			t.Fatalf("tag mismatch: want %s got %s", tag, TagOf(h))
		}
		got, ok := HeapAddr(h)
		if !ok || got != addr {
			t.Fatalf("addr round-trip failed: got %v ok=%v", got, ok)
		}
	}
}

func TestWrongKindDecodersRejectMismatch(t *testing.T) {
	h := EncodeBool(true)
	if _, ok := AsSmallInt(h); ok {
		t.Fatalf("AsSmallInt must reject a boolean handle")
	}
	if _, ok := AsByte(h); ok {
		t.Fatalf("AsByte must reject a boolean handle")
	}
}
