// Package wire implements the binary wire format exchanged with the token
// transfer event service: protobuf encoding of event requests, decoding of
// streamed TokenTransferEvent messages, and assembly of length-prefixed
// frames from raw byte chunks.
//
// The schema is owned by the event service and carried in proto/ as the
// external contract. The codec here is maintained by hand against those
// files with protowire, so the module stays self-contained and the same
// code runs unchanged in native and js/wasm builds. Regenerating with
// protoc (see proto/README) must stay wire-compatible with this package.
package wire
