// Package gridformat writes and reads unstructured grids and image grids
// in the VTK-XML family of file formats (.vtu, .pvtu, .vti, .pvti and
// .pvd).
//
// Data is attached to a writer as fields. A Field describes its shape
// (Layout), its scalar type (Precision) and produces its values as a flat
// little-endian byte buffer (Serialization) when the file is written.
// Writers encode the fields as ASCII, Base64 or raw binary, optionally
// compressed block by block with zlib, LZ4 or LZMA.
//
// Parallel files are written collectively: every rank of a
// parallel.Communicator writes its own piece and rank 0 writes the parent
// file that references all pieces.
package gridformat
