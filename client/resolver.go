package client

import (
	"fmt"
	"sync"

	"callrpc/loadbalance"
	"callrpc/registry"
)

// Resolver maps a call key ("uri#method") to the endpoint URL the request is posted to.
type Resolver interface {
	Resolve(key string) (string, error)
}

// StaticEndpoint posts every call to one configured URL.
type StaticEndpoint string

func (s StaticEndpoint) Resolve(string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty service url")
	}
	return string(s), nil
}

// DiscoveryEndpoint picks among the live instances of a registered service. The instance
// list is loaded on first use and then kept current from Registry.Watch.
type DiscoveryEndpoint struct {
	reg      registry.Registry
	balancer loadbalance.Balancer
	service  string

	mu        sync.RWMutex
	instances []registry.ServiceInstance
	loaded    bool
}

func NewDiscoveryEndpoint(reg registry.Registry, bal loadbalance.Balancer, service string) *DiscoveryEndpoint {
	if bal == nil {
		bal = &loadbalance.RoundRobinBalancer{}
	}
	d := &DiscoveryEndpoint{reg: reg, balancer: bal, service: service}
	updates := reg.Watch(service)
	go func() {
		for instances := range updates {
			d.set(instances)
		}
	}()
	return d
}

func (d *DiscoveryEndpoint) Resolve(key string) (string, error) {
	instances, err := d.current()
	if err != nil {
		return "", err
	}
	inst, err := d.balancer.Pick(key, instances)
	if err != nil {
		return "", fmt.Errorf("service %s: %w", d.service, err)
	}
	return inst.Addr, nil
}

func (d *DiscoveryEndpoint) current() ([]registry.ServiceInstance, error) {
	d.mu.RLock()
	instances, loaded := d.instances, d.loaded
	d.mu.RUnlock()
	if loaded {
		return instances, nil
	}

	instances, err := d.reg.Discover(d.service)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %s: %w", d.service, err)
	}
	d.mu.Lock()
	// a watch update may have landed meanwhile; it is newer
	if !d.loaded {
		d.instances, d.loaded = instances, true
	}
	instances = d.instances
	d.mu.Unlock()
	return instances, nil
}

func (d *DiscoveryEndpoint) set(instances []registry.ServiceInstance) {
	d.mu.Lock()
	d.instances, d.loaded = instances, true
	d.mu.Unlock()
}
