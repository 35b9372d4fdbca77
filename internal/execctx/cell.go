package execctx

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/valueword"
)

// ShapeReturnRef marks a cell allocated purely to keep a callee's return
// value reachable across the gap between the callee's young generation
// being handed off and the caller observing the return (spec §4.9
// "Destruction"). It shares TagObject with internal/object's cell shapes
// (ShapeObject=0, ShapeParentLink=1), so it is numbered well clear of
// that package's range to keep the GC's (Tag, Kind) dispatch unambiguous.
const ShapeReturnRef uint8 = 200

type returnRefPayload struct {
	ref valueword.Handle
}

func init() {
	cellpool.MustFit[returnRefPayload]()
}

func newReturnRefCell(alloc Allocator, ref valueword.Handle) *cellpool.Cell {
	c := alloc.AllocCell()
	c.Tag = valueword.TagObject
	c.Kind = ShapeReturnRef
	p := cellpool.PayloadAs[returnRefPayload](c)
	p.ref = ref
	return c
}
