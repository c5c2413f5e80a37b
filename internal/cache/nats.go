// Package cache keeps pool snapshots in an embedded NATS JetStream
// key-value bucket so reads do not hit the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/models"
)

const (
	bucketName   = "pools"
	readyTimeout = 4 * time.Second
)

// ErrMiss is returned by Get when no snapshot is cached.
var ErrMiss = errors.New("cache miss")

// Server is an in-process NATS server with JetStream enabled.
type Server struct {
	ns     *server.Server
	nc     *nats.Conn
	logger *zap.Logger
}

// StartEmbedded starts a NATS server storing JetStream data under dir.
// It opens no network ports.
func StartEmbedded(dir string, logger *zap.Logger) (*Server, error) {
	logger.Debug("starting embedded NATS", zap.String("dir", dir))

	ns, err := server.NewServer(&server.Options{
		JetStream:  true,
		StoreDir:   dir,
		DontListen: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, errors.New("nats server failed to start within timeout")
	}

	nc, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect in-process: %w", err)
	}

	logger.Info("embedded NATS ready")
	return &Server{ns: ns, nc: nc, logger: logger}, nil
}

// Conn returns the in-process client connection.
func (s *Server) Conn() *nats.Conn { return s.nc }

// Shutdown closes the connection and stops the server.
func (s *Server) Shutdown() {
	if s.nc != nil {
		s.nc.Close()
	}
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.logger.Debug("embedded NATS stopped")
}

// KVCache stores JSON pool snapshots keyed by pool id.
type KVCache struct {
	kv jetstream.KeyValue
}

// NewKVCache creates or updates the pools bucket with the given TTL.
func NewKVCache(ctx context.Context, nc *nats.Conn, ttl time.Duration) (*KVCache, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucketName,
		TTL:     ttl,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", bucketName, err)
	}
	return &KVCache{kv: kv}, nil
}

func key(id int64) string {
	return "pool." + strconv.FormatInt(id, 10)
}

// Put caches a snapshot of p.
func (c *KVCache) Put(ctx context.Context, p models.Pool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pool %d: %w", p.ID, err)
	}
	if _, err := c.kv.Put(ctx, key(p.ID), data); err != nil {
		return fmt.Errorf("put pool %d: %w", p.ID, err)
	}
	return nil
}

// Get returns the cached snapshot of pool id.
func (c *KVCache) Get(ctx context.Context, id int64) (*models.Pool, error) {
	entry, err := c.kv.Get(ctx, key(id))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get pool %d: %w", id, err)
	}

	var p models.Pool
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pool %d: %w", id, err)
	}
	return &p, nil
}

// Delete drops the snapshot of pool id.
func (c *KVCache) Delete(ctx context.Context, id int64) error {
	if err := c.kv.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("delete pool %d: %w", id, err)
	}
	return nil
}
