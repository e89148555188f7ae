// Package address identifies cluster members by the host:port at which they
// accept gossip.
package address

import (
	"fmt"
	"net"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Address is the network address of a cluster member.
type Address string

// Newf returns an address formatted according to the format specifier.
func Newf(format string, args ...interface{}) Address {
	return Address(fmt.Sprintf(format, args...))
}

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// Host returns the host portion of the address.
func (a Address) Host() string {
	host, _, err := net.SplitHostPort(string(a))
	if err != nil {
		return string(a)
	}
	return host
}

// Port returns the port portion of the address, or 0 if it has none.
func (a Address) Port() int {
	_, port, err := net.SplitHostPort(string(a))
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return p
}

// PortString returns the port portion of the address in the ":port" form
// accepted by net.Listen.
func (a Address) PortString() string { return ":" + strconv.Itoa(a.Port()) }

// Validate returns an error if the address is not of the host:port form.
func (a Address) Validate() error {
	if _, _, err := net.SplitHostPort(string(a)); err != nil {
		return errors.Wrapf(err, "[address] - invalid address %q", string(a))
	}
	return nil
}

// Factory hands out sequential local addresses. Useful for tests.
type Factory struct {
	Host      string
	PortStart int
	count     int
}

// NewLocalFactory returns a Factory producing localhost addresses starting at
// the given port.
func NewLocalFactory(portStart int) *Factory {
	return &Factory{Host: "localhost", PortStart: portStart}
}

// Next returns the next address in the sequence.
func (f *Factory) Next() Address {
	addr := Newf("%s:%d", f.Host, f.PortStart+f.count)
	f.count++
	return addr
}

// NextN returns the next n addresses in the sequence.
func (f *Factory) NextN(n int) []Address {
	addrs := make([]Address, n)
	for i := range addrs {
		addrs[i] = f.Next()
	}
	return addrs
}
