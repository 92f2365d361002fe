package hostid

import "os"

// Resolver yields the identity the triggerer writes into its heartbeat rows.
// The prober must use the same resolver, or liveness always reads false.
type Resolver interface {
	Resolve() (string, error)
}

type osResolver struct{}

func (osResolver) Resolve() (string, error) {
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h, nil
	}

	return os.Hostname()
}

func NewOSResolver() Resolver {
	return osResolver{}
}

type fixedResolver struct {
	name string
}

func (r fixedResolver) Resolve() (string, error) {
	return r.name, nil
}

// Fixed returns a resolver pinned to the given identity, used for the
// hostname config override and in tests.
func Fixed(name string) Resolver {
	return fixedResolver{name}
}
