package nats

import (
	"os"

	natsgo "github.com/nats-io/nats.go"
)

// EnvURL overrides the default server for ConnectDefault.
const EnvURL = "CASTORE_NATS_URL"

type closeFunc = func()

type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

func ConnectURL(natsURL string, opts ...natsgo.Option) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		options := append([]natsgo.Option{
			natsgo.Name("castore"),
			natsgo.MaxReconnects(3),
		}, opts...)
		nc, err := natsgo.Connect(natsURL, options...)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { nc.Close() }, nil
	}
}

func ConnectDefault() Connector {
	if natsURL := os.Getenv(EnvURL); natsURL != "" {
		return ConnectURL(natsURL)
	}
	return ConnectURL(natsgo.DefaultURL)
}
