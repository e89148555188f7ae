package relay_test

import (
	"sync"

	"github.com/arya-analytics/relay"
)

type registrar struct {
	mu      sync.Mutex
	rpcs    []relay.RPCEndpoints
	actions []relay.ActionEndpoints
}

func (r *registrar) UpdateRemoteEndpoints(e relay.RPCEndpoints) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rpcs = append(r.rpcs, e)
}

func (r *registrar) UpdateRemoteActionEndpoints(e relay.ActionEndpoints) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, e)
}

func (r *registrar) LastRPC() relay.RPCEndpoints {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rpcs) == 0 {
		return nil
	}
	return r.rpcs[len(r.rpcs)-1]
}

func (r *registrar) LastAction() relay.ActionEndpoints {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actions) == 0 {
		return nil
	}
	return r.actions[len(r.actions)-1]
}

func (r *registrar) rpcItems(addr relay.Address) []relay.RPCID {
	if ep := r.LastRPC()[addr]; ep != nil {
		return ep.Items
	}
	return nil
}

func (r *registrar) actionItems(addr relay.Address) []relay.ActionID {
	if ep := r.LastAction()[addr]; ep != nil {
		return ep.Items
	}
	return nil
}
