// Package vm implements the Calyx value runtime.
//
// This package contains:
//   - Tagged cell arena with handle-based addressing
//   - Mark-sweep collection driven over explicit roots
//   - Functional object protocol for native extension types
//   - Monadic view (size/map/join/collect/reduce) over containers
//   - Hashtable and vector container types
//   - Buffered port abstraction with structural serialization
package vm
