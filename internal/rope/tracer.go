package rope

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

// ropeTags lists every valueword.Tag this package stamps onto cells: tuples
// and strings share the same tree algorithm and therefore the same two
// Cell.Kind shapes (spec §3.5's "string operations reuse rope operations
// directly"), so both tags need identical tracer registrations.
var ropeTags = []valueword.Tag{valueword.TagTuple, valueword.TagString}

func init() {
	for _, tag := range ropeTags {
		tag := tag
		gc.RegisterTracer(tag, ShapeLeaf, func(c *cellpool.Cell, visit func(valueword.Handle)) {
			l := cellpool.PayloadAs[leaf](c)
			for i := uint32(0); i < l.length; i++ {
				visit(l.elems[i])
			}
		})
		gc.RegisterTracer(tag, ShapeInternal, func(c *cellpool.Cell, visit func(valueword.Handle)) {
			n := cellpool.PayloadAs[internalNode](c)
			visit(n.prev)
			visit(n.next)
		})
	}
}
