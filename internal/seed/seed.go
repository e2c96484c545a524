// Package seed maps run indexes to simulation random seeds.
package seed

import "fmt"

// pool was drawn once with numpy.random.random_integers(1, 10000, 40).
// Runs must never share a seed, so the pool is extended by hand rather than wrapped.
var pool = [...]int{
	6012, 7146, 1572, 5017, 4932, 3200, 8521, 1315, 2002, 7949, 9286,
	1666, 4724, 4960, 7995, 7073, 3350, 9843, 6611, 1471, 2476, 7387,
	5685, 7999, 6173, 9285, 5784, 7026, 1926, 3658, 2952, 4629, 97,
	5639, 9757, 3595, 281, 5861, 4816, 8265,
}

// PoolSize is the number of seeds available.
const PoolSize = len(pool)

// OutOfRangeError is returned when a run index has no seed in the pool.
type OutOfRangeError struct {
	Index    int
	PoolSize int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("run number %d is outside the random seed pool (size %d); extend the seed pool instead of reusing seeds",
		e.Index, e.PoolSize)
}

// For returns the seed for the given run index.
func For(index int) (int, error) {
	if index < 0 || index >= PoolSize {
		return 0, &OutOfRangeError{Index: index, PoolSize: PoolSize}
	}
	return pool[index], nil
}

// All returns a copy of the pool.
func All() []int {
	out := make([]int, PoolSize)
	copy(out, pool[:])
	return out
}
