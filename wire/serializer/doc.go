// Package serializer provides message serialization for the replication
// protocol. It defines a common interface and multiple implementations for
// encoding and decoding wire.Message values.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Offering implementations with different performance characteristics
//   - Minimizing memory allocations on the hot replication path
//
// Key Components:
//
//   - ISerializer: Core interface that all serializer implementations must
//     satisfy.
//
//   - binarySerializerImpl: Custom binary format optimized for speed and
//     space efficiency. Uses a flag-based approach to encode only present
//     fields, resulting in compact serialized data with minimal overhead.
//     Recommended for production use.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging or
//     interoperability with other systems, but with lower performance.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package serializer
