// Package guardkind provides the built-in GuardEvaluator conditions
// (§4.3 "named prerequisite conditions"): network-interface presence
// and DNS reachability, registered against an application/guard
// Evaluator at startup the same way healthprobe registers dispatcher
// operations.
package guardkind

import (
	"context"
	"fmt"
	"net"
)

// KindInterfaceUp checks that a named network interface exists and is
// up.
const KindInterfaceUp = "interface-up"

// KindDNSReachable checks that a resolver can look up a host.
const KindDNSReachable = "dns-reachable"

// InterfaceUp returns a guard Func that reports whether the interface
// named by params["interface"] exists and carries the "up" flag.
//
// Params:
//   - params: must contain "interface".
//
// Returns:
//   - func(ctx) (bool, error): the guard condition.
func InterfaceUp(params map[string]string) func(ctx context.Context) (bool, error) {
	name := params["interface"]
	return func(ctx context.Context) (bool, error) {
		if name == "" {
			return false, fmt.Errorf("interface-up: missing %q param", "interface")
		}
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return false, nil
		}
		return iface.Flags&net.FlagUp != 0, nil
	}
}

// DNSReachable returns a guard Func that reports whether
// params["host"] resolves.
//
// Params:
//   - params: must contain "host".
//
// Returns:
//   - func(ctx) (bool, error): the guard condition.
func DNSReachable(params map[string]string) func(ctx context.Context) (bool, error) {
	host := params["host"]
	return func(ctx context.Context) (bool, error) {
		if host == "" {
			return false, fmt.Errorf("dns-reachable: missing %q param", "host")
		}
		var r net.Resolver
		addrs, err := r.LookupHost(ctx, host)
		if err != nil {
			return false, nil
		}
		return len(addrs) > 0, nil
	}
}
