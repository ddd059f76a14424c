package changetoken

import "github.com/0xmhha/configmap-watch/pkg/callback"

type nullToken struct{}

// Null returns a token that never changes and never calls back.
// Registering on it succeeds with an inert handle.
func Null() ChangeToken {
	return nullToken{}
}

func (nullToken) HasChanged() bool { return false }

func (nullToken) SupportsCallbacks() bool { return false }

func (nullToken) RegisterChangeCallback(callback.Func, interface{}) (*callback.Handle, error) {
	return &callback.Handle{}, nil
}
