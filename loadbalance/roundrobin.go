package loadbalance

import (
	"sync/atomic"

	"callrpc/registry"
)

// RoundRobinBalancer cycles through the instances in order with a lock-free counter.
type RoundRobinBalancer struct {
	counter atomic.Int64
}

func (b *RoundRobinBalancer) Pick(_ string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	index := (b.counter.Add(1) - 1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
