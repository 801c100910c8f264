package models

import "github.com/go-errors/errors"

type NetworkName string

const (
	Mainnet NetworkName = "mainnet"
	Testnet NetworkName = "testnet"
)

func (n NetworkName) String() string {
	return string(n)
}

// ParseNetwork maps a client-supplied network value to a known network.
// An empty value defaults to mainnet; anything else unknown is rejected.
func ParseNetwork(s string) (NetworkName, error) {
	switch s {
	case "", Mainnet.String():
		return Mainnet, nil
	case Testnet.String():
		return Testnet, nil
	}
	return "", errors.Errorf("unknown network '%s'", s)
}
