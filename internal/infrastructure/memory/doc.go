// Package memory is test support: map-backed implementations of the repository,
// blacklist, avatar storage and post index interfaces. Service and router tests
// drive the real services through it; production wiring uses postgres,
// redisstore, objectstore and search instead.
package memory
