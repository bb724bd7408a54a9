package util

import "sync/atomic"

// SafeCounter is an int counter safe to use concurrently.
type SafeCounter struct {
	value atomic.Int64
}

// NewSafeCounter creates a counter starting at initialValue.
func NewSafeCounter(initialValue int) *SafeCounter {
	c := &SafeCounter{}
	c.value.Store(int64(initialValue))
	return c
}

// Increment increments the counter and returns the new value.
func (c *SafeCounter) Increment() int {
	return int(c.value.Add(1))
}

// Add adds delta and returns the new value.
func (c *SafeCounter) Add(delta int) int {
	return int(c.value.Add(int64(delta)))
}

// Set sets the value of the counter.
func (c *SafeCounter) Set(newValue int) {
	c.value.Store(int64(newValue))
}

// Value returns the current value of the counter.
func (c *SafeCounter) Value() int {
	return int(c.value.Load())
}

// SafeFlag is a bool safe to use concurrently.
type SafeFlag struct {
	value atomic.Bool
}

// NewSafeFlag creates a flag with an initial value.
func NewSafeFlag(initialValue bool) *SafeFlag {
	f := &SafeFlag{}
	f.value.Store(initialValue)
	return f
}

// Set sets the flag and returns the new value.
func (f *SafeFlag) Set(newValue bool) bool {
	f.value.Store(newValue)
	return newValue
}

// Value returns the current value.
func (f *SafeFlag) Value() bool {
	return f.value.Load()
}

// TrySet flips the flag from false to true and reports whether this call did it.
func (f *SafeFlag) TrySet() bool {
	return f.value.CompareAndSwap(false, true)
}
