// Package network checks that a stream is reachable with the headers its descriptor carries.
package network

import (
	"net/http"
	"time"
)

// Client is shared by every probe.
var Client = &http.Client{
	Timeout:   30 * time.Second,
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 10
	t.MaxIdleConnsPerHost = 4
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 15 * time.Second
	t.ExpectContinueTimeout = 5 * time.Second
	return t
}
