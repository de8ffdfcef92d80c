// Package redis implements store.Store on go-redis. Jobs and tasks are
// Hashes; the open tasks of each job sit in a Sorted Set scored by task ID,
// so a reservation is a ZPOPMIN inside a Lua script that also stamps the
// signature. The store is schemaless and Migrate is a no-op.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
//
// The scripts build task keys from their arguments, so the store needs a
// single Redis node or a cluster-aware key layout it does not provide.
package redis
