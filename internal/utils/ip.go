package utils

import (
	"fmt"
	"net"
)

// CIDRSet is a parsed allowlist of networks.
type CIDRSet []*net.IPNet

// ParseCIDRs fails on the first malformed entry.
func ParseCIDRs(cidrs []string) (CIDRSet, error) {
	set := make(CIDRSet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, netblock, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		set = append(set, netblock)
	}
	return set, nil
}

// Contains reports whether ip falls inside any network of the set.
func (s CIDRSet) Contains(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, netblock := range s {
		if netblock.Contains(parsed) {
			return true
		}
	}
	return false
}
