package seqlist

import (
	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/gc"
	"github.com/Voskan/protocore/internal/valueword"
)

func init() {
	gc.RegisterTracer(valueword.TagList, 0, func(c *cellpool.Cell, visit func(valueword.Handle)) {
		n := cellpool.PayloadAs[node](c)
		visit(n.value)
		visit(n.prev)
		visit(n.next)
	})
}
