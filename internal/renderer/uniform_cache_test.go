package renderer

import (
	"testing"
)

func TestNewUniformCache(t *testing.T) {
	cache := NewUniformCache(0)

	if cache == nil {
		t.Fatal("NewUniformCache returned nil")
	}

	if cache.locations == nil {
		t.Error("locations map should be initialized")
	}
}

func TestUniformCacheClear(t *testing.T) {
	cache := NewUniformCache(0)
	cache.locations["spotColor[0]"] = 5

	cache.Clear()

	if len(cache.locations) != 0 {
		t.Error("Clear should empty the cache")
	}
}

func TestUniformCacheReturnsCachedLocation(t *testing.T) {
	cache := NewUniformCache(0)
	cache.locations["glowIntensity"] = 3
	cache.locations["missing"] = -1

	if loc := cache.GetLocation("glowIntensity"); loc != 3 {
		t.Errorf("Expected cached location 3, got %d", loc)
	}
	if loc := cache.GetLocation("missing"); loc != -1 {
		t.Errorf("Missing uniforms should stay cached as -1, got %d", loc)
	}
}

func TestArraySettersIgnoreEmptySlices(t *testing.T) {
	cache := NewUniformCache(0)

	// no GL context: these must return before touching the driver
	cache.SetVec3Array("spotPosition", nil)
	cache.SetFloatArray("spotRange", nil)
	cache.SetIntArray("spotShadow", nil)
	cache.SetMat4Array("shadowMatrices", nil)

	if len(cache.locations) != 0 {
		t.Error("Empty array setters should not look up locations")
	}
}

func TestUnwindRunsInReverse(t *testing.T) {
	var order []int
	var u Unwind
	u.Add(func() { order = append(order, 1) })
	u.Add(func() { order = append(order, 2) })
	u.Add(func() { order = append(order, 3) })

	u.Unwind()

	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Errorf("Expected reverse order, got %v", order)
	}
	if len(u) != 0 {
		t.Error("Unwind should reset the list")
	}
}

func TestUnwindDiscard(t *testing.T) {
	called := false
	var u Unwind
	u.Add(func() { called = true })
	u.Discard()
	u.Unwind()

	if called {
		t.Error("Discarded steps must not run")
	}
}
