package ordmap

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

func init() {
	gc.RegisterTracer(valueword.TagSparseMap, ShapeMapHeader, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		h := cellpool.PayloadAs[header](c)
		visit(h.root)
	})
	gc.RegisterTracer(valueword.TagSparseMap, ShapeMapNode, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		n := cellpool.PayloadAs[mapNode](c)
		visit(n.value)
		visit(n.prev)
		visit(n.next)
	})
}
