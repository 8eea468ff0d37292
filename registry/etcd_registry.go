// Package registry resolves a service name to the endpoint URLs that currently serve it.
//
// The etcd layout is one key per live endpoint:
//
//	Key:   /callrpc/{ServiceName}/{Addr}
//	Value: JSON-encoded ServiceInstance (Addr is the endpoint URL)
//
// Servers attach their key to a TTL lease and keep it alive; a crashed server's entry
// expires on its own, so clients never keep posting to a dead endpoint for long.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/callrpc/"

func serviceKey(serviceName string) string {
	return keyPrefix + serviceName + "/"
}

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // safe for concurrent use
}

func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect etcd %v: %w", endpoints, err)
	}
	return &EtcdRegistry{client: c}, nil
}

// Register publishes instance under a lease of ttl seconds and keeps the lease alive in
// the background until the process exits or Deregister is called.
func (r *EtcdRegistry) Register(serviceName string, instance ServiceInstance, ttl int64) error {
	ctx := context.TODO()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, serviceKey(serviceName)+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", serviceName, err)
	}

	// leaseID stays local so several servers can share one EtcdRegistry
	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}

	// drain keepalive acks, otherwise the client logs a full-channel warning
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes an endpoint right away instead of waiting for its lease to expire.
func (r *EtcdRegistry) Deregister(serviceName string, addr string) error {
	_, err := r.client.Delete(context.TODO(), serviceKey(serviceName)+addr)
	return err
}

// Watch emits the full instance list whenever anything under the service prefix changes.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		watchChan := r.client.Watch(context.TODO(), serviceKey(serviceName), clientv3.WithPrefix())
		for range watchChan {
			// re-reading the prefix is simpler than applying individual events
			instances, err := r.Discover(serviceName)
			if err != nil {
				continue
			}
			ch <- instances
		}
		close(ch)
	}()

	return ch
}

// Discover lists the endpoints currently registered for a service. Malformed values are
// skipped.
func (r *EtcdRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(context.TODO(), serviceKey(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Close releases the etcd client.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
