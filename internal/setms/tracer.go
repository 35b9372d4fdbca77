package setms

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

func init() {
	gc.RegisterTracer(valueword.TagSparseMap, ShapeMultisetEntry, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		e := cellpool.PayloadAs[multisetEntry](c)
		visit(e.element)
	})
}
