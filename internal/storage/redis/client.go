package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client соединение с Redis, общее для кэша альбомов и проверки состояния.
type Client struct {
	*redis.Client
}

func NewClient(opts Options) *Client {
	return &Client{
		Client: redis.NewClient(&redis.Options{
			Addr:         opts.Addr,
			Password:     opts.Password,
			DB:           opts.DB,
			DialTimeout:  opts.DialTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		}),
	}
}

// AlbumCache кэш альбомов поверх этого соединения.
func (c *Client) AlbumCache(ttl time.Duration) *AlbumCache {
	return NewAlbumCache(c.Client, ttl)
}

func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "storage.redis.Client.HealthCheck"

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
