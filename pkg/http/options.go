package http

import "time"

type HttpOpts func(*httpConfig)

func WithConnClientTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.connClientTimeout = timeout
	}
}

func WithRequestTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.requestTimeout = timeout
	}
}

func WithClientKeepAlive(keepAlive time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.clientKeepAlive = keepAlive
	}
}

func WithResponseHeaderTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.responseHeaderTimeout = timeout
	}
}

func WithIdleConnTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.idleConnTimeout = timeout
	}
}

func WithTransport(transport TransportFunc) HttpOpts {
	return func(c *httpConfig) {
		c.transports = append(c.transports, transport)
	}
}

// WithStreaming drops the whole-request timeout. Use it for clients that
// read long-lived response bodies and carry a context deadline instead.
func WithStreaming() HttpOpts {
	return func(c *httpConfig) {
		c.streaming = true
	}
}

// WithMaxConnsPerHost caps concurrent connections to one backend; zero
// means no limit.
func WithMaxConnsPerHost(n int) HttpOpts {
	return func(c *httpConfig) {
		c.maxConnsPerHost = n
	}
}
