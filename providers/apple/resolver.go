package apple

import (
	"fmt"
	"strings"
)

// ClientOrder selects which client identity is tried first when no hint is available.
type ClientOrder string

const (
	// BundleFirst tries the app bundle identifier (native iOS sign-in) first
	BundleFirst ClientOrder = "bundle-first"

	// ServiceFirst tries the Services ID (web and Android sign-in) first
	ServiceFirst ClientOrder = "service-first"
)

// ParseClientOrder parses a configured client order. Empty means BundleFirst.
func ParseClientOrder(s string) (ClientOrder, error) {
	switch ClientOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", BundleFirst:
		return BundleFirst, nil
	case ServiceFirst:
		return ServiceFirst, nil
	default:
		return "", fmt.Errorf("unknown client order %q (want %q or %q)", s, BundleFirst, ServiceFirst)
	}
}

// Resolver produces the ordered list of client identities to try.
type Resolver struct {
	bundleID  string
	serviceID string
	order     ClientOrder
}

// NewResolver creates a resolver for the two registered client identities.
func NewResolver(bundleID, serviceID string, order ClientOrder) (*Resolver, error) {
	if bundleID == "" {
		return nil, fmt.Errorf("bundle ID is required")
	}
	if serviceID == "" {
		return nil, fmt.Errorf("service ID is required")
	}
	if bundleID == serviceID {
		return nil, fmt.Errorf("bundle ID and service ID must differ")
	}
	if order == "" {
		order = BundleFirst
	}
	if order != BundleFirst && order != ServiceFirst {
		return nil, fmt.Errorf("unknown client order %q", order)
	}

	return &Resolver{
		bundleID:  bundleID,
		serviceID: serviceID,
		order:     order,
	}, nil
}

// BundleID returns the platform A identity (the app bundle identifier)
func (r *Resolver) BundleID() string {
	return r.bundleID
}

// ServiceID returns the platform B identity (the Services ID)
func (r *Resolver) ServiceID() string {
	return r.serviceID
}

// Known reports whether clientID is one of the two registered identities.
func (r *Resolver) Known(clientID string) bool {
	return clientID == r.bundleID || clientID == r.serviceID
}

// Order returns both identities in the order they should be tried.
// A known hint is moved to the front; unknown or empty hints keep the default order.
// The result always has exactly two distinct entries.
func (r *Resolver) Order(hint string) []string {
	first, second := r.bundleID, r.serviceID
	if r.order == ServiceFirst {
		first, second = second, first
	}

	if hint == second {
		first, second = second, first
	}

	return []string{first, second}
}
