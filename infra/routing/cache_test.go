package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/civigrid/evacd/core/cost"
	"github.com/civigrid/evacd/core/geo"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) TravelTimes(_ context.Context, origins, dests []geo.Point) (*cost.Matrix, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return cost.HaversineMatrix(origins, dests), nil
}

func TestCachedMatrixProvider_ServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingProvider{}
	c := NewCachedMatrixProvider(inner, CacheConfig{Addr: mr.Addr(), TTL: time.Minute})

	origins := []geo.Point{{Lon: 0, Lat: 0}}
	dests := []geo.Point{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}

	m1, err := c.TravelTimes(context.Background(), origins, dests)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	m2, err := c.TravelTimes(context.Background(), origins, dests)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.calls)
	}
	if m1.At(0, 1) != m2.At(0, 1) {
		t.Fatalf("cached matrix differs: %v vs %v", m1.At(0, 1), m2.At(0, 1))
	}
}

func TestCachedMatrixProvider_DistinctKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingProvider{}
	c := NewCachedMatrixProvider(inner, CacheConfig{Addr: mr.Addr(), TTL: time.Minute})

	_, _ = c.TravelTimes(context.Background(),
		[]geo.Point{{Lon: 0, Lat: 0}}, []geo.Point{{Lon: 1, Lat: 1}})
	_, _ = c.TravelTimes(context.Background(),
		[]geo.Point{{Lon: 0, Lat: 0}}, []geo.Point{{Lon: 2, Lat: 2}})

	if inner.calls != 2 {
		t.Fatalf("different coordinate sets must miss, got %d calls", inner.calls)
	}
}

func TestCachedMatrixProvider_CacheDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	inner := &countingProvider{}
	c := NewCachedMatrixProvider(inner, CacheConfig{Addr: addr, TTL: time.Minute})

	m, err := c.TravelTimes(context.Background(),
		[]geo.Point{{Lon: 0, Lat: 0}}, []geo.Point{{Lon: 1, Lat: 1}})
	if err != nil {
		t.Fatalf("broken cache must not fail the request: %v", err)
	}
	if m == nil || inner.calls != 1 {
		t.Fatalf("expected inner provider hit, got %d calls", inner.calls)
	}
}

func TestCachedMatrixProvider_InnerErrorPropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingProvider{err: errors.New("host down")}
	c := NewCachedMatrixProvider(inner, CacheConfig{Addr: mr.Addr(), TTL: time.Minute})

	if _, err := c.TravelTimes(context.Background(),
		[]geo.Point{{Lon: 0, Lat: 0}}, []geo.Point{{Lon: 1, Lat: 1}}); err == nil {
		t.Fatal("expected inner provider error")
	}
}

func TestCachedMatrixProvider_CorruptEntryIgnored(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingProvider{}
	c := NewCachedMatrixProvider(inner, CacheConfig{Addr: mr.Addr(), TTL: time.Minute})

	origins := []geo.Point{{Lon: 0, Lat: 0}}
	dests := []geo.Point{{Lon: 1, Lat: 1}}
	mr.Set(matrixKey(origins, dests), "not json")

	m, err := c.TravelTimes(context.Background(), origins, dests)
	if err != nil {
		t.Fatalf("corrupt entry must fall through: %v", err)
	}
	if m == nil || inner.calls != 1 {
		t.Fatalf("expected fresh provider result, got %d calls", inner.calls)
	}
}
