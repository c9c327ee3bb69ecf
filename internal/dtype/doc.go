// Package dtype provides precision tags and conversion between Go scalars
// and precision-tagged little-endian byte buffers.
//
// A [Kind] names the scalar type of serialized field data using the VTK
// attribute spelling (Int32, UInt8, Float64, String):
//
//	k, err := dtype.Parse("Float32")
//	k.Size() // 4
//
// # Writing Data
//
// Use [Put] or [Encode] to store Go values at a given precision. Values are
// cast the way a static numeric conversion would cast them:
//
//	buf := dtype.Encode(dtype.Float32, []int{1, 2, 3})
//
// # Reading Data
//
// Use [Get] or [Convert] to read precision-tagged bytes back into Go values:
//
//	values, err := dtype.Convert[float64](dtype.Int32, buf)
//
// [AppendText] and [ParseText] handle the ASCII representation used by
// inlined ascii data arrays.
package dtype
