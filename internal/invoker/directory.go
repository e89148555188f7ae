package invoker

import (
	"net/url"
	"strings"
	"sync"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const pathPrefix = "/invokers/"

type ref struct {
	path string
	addr address.Address
}

func (r ref) Path() string { return r.path }

func (r ref) Address() address.Address { return r.addr }

func (r ref) String() string { return r.path }

// Directory registers the invokers hosted by the local member and resolves
// invoker paths from any member. A path pointing at the local member resolves
// only while the invoker is registered; a path pointing at a remote member
// resolves to a reference addressed to that member.
type Directory struct {
	addr  address.Address
	mu    sync.RWMutex
	local map[string]Ref
}

// NewDirectory returns a directory for the member at addr.
func NewDirectory(addr address.Address) *Directory {
	return &Directory{addr: addr, local: make(map[string]Ref)}
}

// Register creates a new local invoker reference. If name is empty, a random
// identifier is generated.
func (d *Directory) Register(name string) Ref {
	if name == "" {
		name = uuid.New().String()
	}
	r := ref{path: FormatPath(d.addr, name), addr: d.addr}
	d.mu.Lock()
	d.local[r.path] = r
	d.mu.Unlock()
	return r
}

// Deregister removes a local invoker. Paths pointing to it no longer resolve.
func (d *Directory) Deregister(r Ref) {
	d.mu.Lock()
	delete(d.local, r.Path())
	d.mu.Unlock()
}

// Resolve implements Resolver.
func (d *Directory) Resolve(path string) (Ref, error) {
	addr, _, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if addr != d.addr {
		return ref{path: path, addr: addr}, nil
	}
	d.mu.RLock()
	r, ok := d.local[path]
	d.mu.RUnlock()
	if !ok {
		return nil, newResolutionError(path, ErrGone)
	}
	return r, nil
}

// FormatPath returns the path of the invoker with the given name on the member
// at addr.
func FormatPath(addr address.Address, name string) string {
	return (&url.URL{Scheme: Scheme, Host: addr.String(), Path: pathPrefix + name}).String()
}

// ParsePath splits an invoker path into the hosting member's address and the
// invoker's name.
func ParsePath(path string) (address.Address, string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", newResolutionError(path, errors.Mark(err, ErrMalformed))
	}
	if u.Scheme != Scheme || !strings.HasPrefix(u.Path, pathPrefix) {
		return "", "", newResolutionError(path, ErrMalformed)
	}
	name := strings.TrimPrefix(u.Path, pathPrefix)
	addr := address.Address(u.Host)
	if name == "" || addr.Validate() != nil {
		return "", "", newResolutionError(path, ErrMalformed)
	}
	return addr, name, nil
}
