package registry

// ServiceInstance is one reachable copy of the RPC endpoint.
type ServiceInstance struct {
	Addr    string // Full endpoint URL, e.g. "http://10.0.0.5:8080/rpc"
	Weight  int    // Weight for load balancing
	Version string
}

type Registry interface {
	Register(serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(serviceName string, addr string) error
	Discover(serviceName string) ([]ServiceInstance, error)
	Watch(serviceName string) <-chan []ServiceInstance
}
