package object

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

func init() {
	gc.RegisterTracer(valueword.TagObject, ShapeObject, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		p := cellpool.PayloadAs[objectPayload](c)
		visit(p.parentChain)
		visit(p.attrs)
	})
	gc.RegisterTracer(valueword.TagObject, ShapeParentLink, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		l := cellpool.PayloadAs[parentLinkPayload](c)
		visit(l.object)
		visit(l.next)
	})
}
