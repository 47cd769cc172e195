// Package policy decides whether a destination host may be relayed to.
package policy

import (
	"errors"
	"net/url"
)

// ErrTargetDenied is returned when the destination fails the access policy.
var ErrTargetDenied = errors.New("target host is not permitted")

// Reasons reported in a denied Decision.
const (
	ReasonDenyListed = "deny_listed"
	ReasonNotAllowed = "not_allow_listed"
)

// Decision is the outcome of a policy check. Reason is set only when denied.
type Decision struct {
	Allowed bool
	Reason  string
}

// Policy holds the deny and allow hostname sets. A nil or empty set is
// treated as unconfigured. Hostnames match exactly.
type Policy struct {
	deny  map[string]struct{}
	allow map[string]struct{}
}

// New builds a Policy from hostname lists.
func New(deny, allow []string) *Policy {
	return &Policy{deny: toSet(deny), allow: toSet(allow)}
}

func toSet(hosts []string) map[string]struct{} {
	if len(hosts) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[h] = struct{}{}
	}
	return set
}

// Check evaluates the target's hostname. The deny set wins over the allow set.
func (p *Policy) Check(target *url.URL) Decision {
	host := target.Hostname()
	if _, denied := p.deny[host]; denied {
		return Decision{Reason: ReasonDenyListed}
	}
	if p.allow != nil {
		if _, ok := p.allow[host]; !ok {
			return Decision{Reason: ReasonNotAllowed}
		}
	}
	return Decision{Allowed: true}
}

// DenyCount returns the number of deny-listed hosts.
func (p *Policy) DenyCount() int { return len(p.deny) }

// AllowCount returns the number of allow-listed hosts.
func (p *Policy) AllowCount() int { return len(p.allow) }
