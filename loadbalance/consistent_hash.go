package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"callrpc/registry"
)

// ConsistentHashBalancer maps call keys onto a hash ring of endpoints, so one uri#method keeps
// hitting the same endpoint until the instance list changes. Each endpoint is placed on the
// ring as many virtual nodes to even out the distribution.
//
//	           0
//	       ╱       ╲
//	   B ●           ● A
//	     │  key ◆──► │   (clockwise to the nearest node → A)
//	   C ●           ● A' (virtual node of A)
//	       ╲       ╱
type ConsistentHashBalancer struct {
	replicas int

	mu sync.Mutex

	// joined addrs the ring was built from
	ident string
	ring  []uint32
	nodes map[uint32]registry.ServiceInstance
}

func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{replicas: 100}
}

// Pick rebuilds the ring only when the instance list differs from the previous call.
func (b *ConsistentHashBalancer) Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ident := identOf(instances); ident != b.ident {
		b.build(instances)
		b.ident = ident
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

func (b *ConsistentHashBalancer) build(instances []registry.ServiceInstance) {
	b.ring = make([]uint32, 0, len(instances)*b.replicas)
	b.nodes = make(map[uint32]registry.ServiceInstance, len(instances)*b.replicas)
	for _, inst := range instances {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", inst.Addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = inst
		}
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

func identOf(instances []registry.ServiceInstance) string {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	sort.Strings(addrs)
	return strings.Join(addrs, "\x00")
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
