// Package redis implements the "redis" relay client, publishing events as JSON
// messages on a Redis pub/sub channel.
package redis
