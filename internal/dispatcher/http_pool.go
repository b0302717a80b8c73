package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPPool round-robins a small set of fasthttp clients so webhook delivery
// never serializes behind one connection's rate limit.
type HTTPPool struct {
	clients []*fasthttp.Client
	size    int
	index   uint32
}

func NewHTTPPool(size int) *HTTPPool {
	if size <= 0 {
		size = 1
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS13,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
	}

	clients := make([]*fasthttp.Client, size)
	for i := 0; i < size; i++ {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:           64,
			MaxIdleConnDuration:       180 * time.Second,
			ReadTimeout:               5 * time.Second,
			WriteTimeout:              5 * time.Second,
			MaxConnWaitTimeout:        time.Second,
			MaxIdemponentCallAttempts: 1,
			DialDualStack:             true,
			TLSConfig:                 tlsConfig,
		}
	}

	return &HTTPPool{
		clients: clients,
		size:    size,
	}
}

func (hp *HTTPPool) GetClient() *fasthttp.Client {
	i := atomic.AddUint32(&hp.index, 1)
	return hp.clients[int(i)%hp.size]
}
