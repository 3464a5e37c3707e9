// Package codec provides serialization and deserialization of .rkm map files.
//
// An .rkm file carries a strategy-game map: its names, its territories with
// their nuclei, the borders between territories and two PNG raster layers.
// The container is a signature followed by tagged records and terminated by
// a SHA-512 checksum record.
//
// # Stream Format
//
//	[Signature(8)] { [Tag(4)][Length(4)][Payload(Length)] }* [CHKS][64][Digest(64)]
//
// The signature is 83 52 4B 4D 0D 0A 1A 0A. All integers are big-endian
// signed 32-bit values. Length must be at least 1 and no larger than the
// bytes left in the stream.
//
// Records are written in this order:
//   - MCNM: code name, UTF-8
//   - MDNM: display name, UTF-8
//   - MATH: author, UTF-8
//   - VERT: count | {idLen id nucleusCount {x y}*}*
//   - EDGE: count | {srcLen src tgtLen tgt}*
//   - IMGB: base layer, PNG
//   - IMGT: text layer, PNG
//   - CHKS: SHA-512 over the signature and every preceding record
//
// Any other tag is read and skipped, so later versions can add records
// without breaking older readers. The skipped bytes are still covered by
// the checksum.
//
// # Usage
//
//	enc := codec.NewEncoder()
//	data, err := enc.EncodeBytes(m)
//	if err != nil {
//	    return err
//	}
//
//	m, err := codec.NewDecoder().DecodeBytes(data)
//	if err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Every failure is a *Error carrying a Kind (structural, integrity,
// validation, io or resource) and a sentinel cause such as ErrTruncated or
// ErrChecksumMismatch that can be matched with errors.Is. A failed decode
// never returns a partial map. The package does not log.
//
// # Thread Safety
//
// Encoder and Decoder hold only configuration and are safe for concurrent
// use. Each call allocates its own digest, buffers and builder.
//
// # Integrity
//
// The checksum detects truncation, bit rot and line-ending rewrites. It is
// not authentication: anyone can recompute it.
package codec
