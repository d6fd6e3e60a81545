package pipeline

import "runtime"

// Category groups parsers that share a worker sizing rule.
type Category string

const (
	// CategoryFlat covers listing discovery parsers (avito, youla, upn).
	CategoryFlat Category = "flat"
	// CategoryHouse covers per-address house detail parsers (domaekb).
	CategoryHouse Category = "house"
	// CategoryLocation covers geocoding parsers (google_maps).
	CategoryLocation Category = "location"
)

// Policy derives worker counts from hardware parallelism.
type Policy struct {
	// CPUs is the available parallelism. Zero means runtime.NumCPU.
	CPUs int

	// Divisors maps a category to the divisor applied to CPUs.
	// Missing or non-positive entries count as 1.
	Divisors map[Category]int
}

// DefaultPolicy uses every core for house and flat parsers and half of them
// for location lookups.
func DefaultPolicy() Policy {
	return Policy{
		Divisors: map[Category]int{
			CategoryFlat:     1,
			CategoryHouse:    1,
			CategoryLocation: 2,
		},
	}
}

// Workers returns the pool size for category, at least 1.
func (p Policy) Workers(category Category) int {
	cpus := p.CPUs
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	return WorkerCount(cpus, p.Divisors[category])
}

// WorkerCount divides cpus by divisor and never returns less than 1.
func WorkerCount(cpus, divisor int) int {
	if divisor <= 0 {
		divisor = 1
	}
	n := cpus / divisor
	if n < 1 {
		return 1
	}
	return n
}
