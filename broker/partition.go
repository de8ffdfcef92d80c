package broker

import (
	"fmt"

	"github.com/xraph/taskpool"
)

// Partition splits count into parts shares. Bounded counts are spread so
// that shares differ by at most one, larger shares first, and the shares
// sum to count. An unbounded count yields parts unbounded shares.
func Partition(count taskpool.Count, parts int) ([]taskpool.Count, error) {
	if parts < 1 {
		return nil, fmt.Errorf("%w: %d", taskpool.ErrInvalidParts, parts)
	}

	shares := make([]taskpool.Count, parts)
	if count.Unbounded() {
		for i := range shares {
			shares[i] = taskpool.All()
		}
		return shares, nil
	}

	base, extra := count.N()/parts, count.N()%parts
	for i := range shares {
		n := base
		if i < extra {
			n++
		}
		shares[i] = taskpool.Limit(n)
	}
	return shares, nil
}
