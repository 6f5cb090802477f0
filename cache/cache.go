package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pagegraph/cache")

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Store is a byte cache with per entry expiry. Writes are upserts,
// concurrent writers on the same key are last write wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Normalize lower cases the text and collapses whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Key returns namespace:md5(normalized text + filter). Filter values are
// sorted so equivalent filters share a key.
func Key(namespace, text string, filter model.SearchFilter) string {
	var b strings.Builder
	b.WriteString(Normalize(text))
	if !filter.IsEmpty() {
		spaces := slices.Clone(filter.SpaceKeys)
		pages := slices.Clone(filter.PageIDs)
		slices.Sort(spaces)
		slices.Sort(pages)
		b.WriteString("|spaces=")
		b.WriteString(strings.Join(spaces, ","))
		b.WriteString("|pages=")
		b.WriteString(strings.Join(pages, ","))
	}

	sum := md5.Sum([]byte(b.String()))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// GetJSON reads and decodes a cached value.
func GetJSON[T any](ctx context.Context, store Store, key string) (*T, bool, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return nil, false, helper.NewError("decode cache value", err)
	}
	return value, true, nil
}

// SetJSON encodes and stores a value.
func SetJSON[T any](ctx context.Context, store Store, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return helper.NewError("encode cache value", err)
	}
	return store.Set(ctx, key, data, ttl)
}

// instrumented records a span and a hit/miss counter around a store.
type instrumented struct {
	name  string
	store Store
}

// Instrument wraps a store with tracing and request counters labelled name.
func Instrument(name string, store Store) Store {
	return &instrumented{name: name, store: store}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "cache.Get", trace.WithAttributes(
		attribute.String("cache.name", i.name),
		attribute.String("cache.key", key),
	))
	defer span.End()

	value, ok, err := i.store.Get(ctx, key)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CacheRequestsTotal.WithLabelValues(i.name, "error").Inc()
	case ok:
		metrics.CacheRequestsTotal.WithLabelValues(i.name, "hit").Inc()
	default:
		metrics.CacheRequestsTotal.WithLabelValues(i.name, "miss").Inc()
	}
	span.SetAttributes(attribute.Bool("cache.hit", ok))

	return value, ok, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "cache.Set", trace.WithAttributes(
		attribute.String("cache.name", i.name),
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	err := i.store.Set(ctx, key, value, ttl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (i *instrumented) Close() error {
	return i.store.Close()
}

// Config selects and configures a backend.
type Config struct {
	Backend    string        `mapstructure:"backend" json:"backend"`
	DefaultTTL time.Duration `mapstructure:"default_ttl" json:"default_ttl"`
	RedisAddr  string        `mapstructure:"redis_addr" json:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db" json:"redis_db"`
	RedisPass  string        `mapstructure:"redis_password" json:"-"`
	Prefix     string        `mapstructure:"prefix" json:"prefix"`
	BadgerPath string        `mapstructure:"badger_path" json:"badger_path"`
}

// DefaultConfig returns an in memory cache with a one hour expiry.
func DefaultConfig() Config {
	return Config{
		Backend:    "memory",
		DefaultTTL: time.Hour,
		Prefix:     "pagegraph",
	}
}

// New creates the configured backend, wrapped with instrumentation.
func New(ctx context.Context, name string, config Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch config.Backend {
	case "", "memory":
		store = NewMemoryStore(config.DefaultTTL)
	case "redis":
		store, err = NewRedisStore(ctx, RedisOptions{
			Addr:     config.RedisAddr,
			Password: config.RedisPass,
			DB:       config.RedisDB,
			Prefix:   config.Prefix,
		})
	case "badger":
		store, err = NewBadgerStore(config.BadgerPath)
	default:
		return nil, helper.NewError("create cache "+name, ErrUnknownBackend)
	}
	if err != nil {
		return nil, helper.NewError("create cache "+name, err)
	}
	return Instrument(name, store), nil
}
