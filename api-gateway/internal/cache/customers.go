package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fjod/cartlink/pkg/commercetools"
)

// CustomerCache keeps recently resolved customers in process memory.
type CustomerCache struct {
	lru *expirable.LRU[string, *commercetools.Customer]
}

func NewCustomerCache(size int, ttl time.Duration) *CustomerCache {
	return &CustomerCache{lru: expirable.NewLRU[string, *commercetools.Customer](size, nil, ttl)}
}

func (c *CustomerCache) Get(id string) (*commercetools.Customer, bool) {
	return c.lru.Get(id)
}

func (c *CustomerCache) Add(id string, customer *commercetools.Customer) {
	c.lru.Add(id, customer)
}

func (c *CustomerCache) Len() int {
	return c.lru.Len()
}
