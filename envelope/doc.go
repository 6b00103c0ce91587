// Package envelope implements the binary envelope exchanged between the host
// and the compute module, and the catalogue of tagged messages it carries.
//
// # Wire Format
//
// All integers are little-endian.
//
//	envelope := header message*
//	header   := total_length:u32 message_count:u32
//	message  := tag:u32 body_length:u32 body pad8
//
// Bodies are packed primitives: u32, u64, f64, bool as u32, and length
// prefixed strings and byte slices padded to 4 bytes. Vectors are a u32 count
// followed by their items.
//
// # Ownership
//
// An outbound Builder is consumed once by Take; the bytes then belong to the
// module. Inbound envelopes are copied out of linear memory before Parse so
// their bodies stay valid while handlers call back into the module.
//
// # Catalogue
//
// Tags below 0x100 are host to module notifications (Direction ToWasm).
// Tags from 0x101 are module to host requests (Direction FromWasm).
package envelope
