// Package loadbalance picks the endpoint a call is posted to when several instances of the
// service are registered.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity endpoints
//   - WeightedRandom:  endpoints of different capacity
//   - ConsistentHash:  the same uri#method always lands on the same endpoint
package loadbalance

import (
	"errors"

	"callrpc/registry"
)

// Balancer chooses one instance for a call. key is the call's "uri#method"; strategies that
// do not need affinity ignore it. Pick must be goroutine-safe.
type Balancer interface {
	Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error)
	Name() string
}

// ErrNoInstances is returned by every strategy for an empty instance list.
var ErrNoInstances = errors.New("no instances available")

// New returns the strategy with the given name; unknown names fall back to round robin.
func New(name string) Balancer {
	switch name {
	case "weighted_random":
		return &WeightedRandomBalancer{}
	case "consistent_hash":
		return NewConsistentHashBalancer()
	default:
		return &RoundRobinBalancer{}
	}
}
