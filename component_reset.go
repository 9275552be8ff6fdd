// component_reset.go - Reset lifecycle for machine components

package main

// Resettable is implemented by every component that participates in a
// machine reset. ROM contents survive a reset (the boot image stays loaded);
// everything else returns to its power-on state.
type Resettable interface {
	Reset()
}

// resetAll walks the registered components in order.
func resetAll(components []Resettable) {
	for _, c := range components {
		c.Reset()
	}
}
