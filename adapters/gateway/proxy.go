package gateway

import (
	"context"
	"net"
	"net/http"

	"golang.org/x/net/proxy"
)

// NewSocksTransport returns an HTTP transport that dials through a SOCKS5 proxy
func NewSocksTransport(socksAddr string) (*http.Transport, error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		dial = cd.DialContext
	}

	return &http.Transport{DialContext: dial}, nil
}
