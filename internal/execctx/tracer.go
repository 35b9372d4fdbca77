package execctx

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

func init() {
	gc.RegisterTracer(valueword.TagObject, ShapeReturnRef, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		p := cellpool.PayloadAs[returnRefPayload](c)
		visit(p.ref)
	})
}
