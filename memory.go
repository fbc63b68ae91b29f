package gtfssql

import "sync"

// pooledValues wraps []any for pooling
type pooledValues struct {
	data []any
}

// valuesPool recycles the argument slices bound to one table's insert
// statement, so a load allocates about one slice per batch row instead of
// one per record. Every slice handed out has exactly width elements.
//
// Thread Safety: get and put are safe for concurrent use.
type valuesPool struct {
	width int
	pool  sync.Pool
}

func newValuesPool(width int) *valuesPool {
	p := &valuesPool{width: width}
	p.pool.New = func() any {
		return &pooledValues{data: make([]any, width)}
	}
	return p
}

// get returns a cleared slice of width elements
func (p *valuesPool) get() []any {
	pooled, ok := p.pool.Get().(*pooledValues)
	if !ok || len(pooled.data) != p.width {
		// This should never happen with our pool setup, but provide fallback
		return make([]any, p.width)
	}
	return pooled.data
}

// put returns values to the pool. Slices of another width are dropped.
func (p *valuesPool) put(values []any) {
	if p == nil || len(values) != p.width {
		return
	}
	clear(values)
	p.pool.Put(&pooledValues{data: values})
}
