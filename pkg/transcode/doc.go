// Package transcode turns an upstream image response body into its upscaled
// replacement.
//
// A transcode runs these steps in order, and any failure aborts the whole
// request:
//
//  1. Map the Content-Type onto a Format (image/jpg is an alias of image/jpeg).
//  2. Undo the Content-Encoding (gzip, deflate or br).
//  3. Skip upscaling when the decompressed size exceeds the size threshold
//     for the format; the original body is returned untouched.
//  4. Decode, hand the image to the Upscaler, which also picks the output format.
//  5. Encode and recompress with the original Content-Encoding.
//
// RewriteHeaders then fixes Content-Type, Content-Length and the
// Content-Disposition file extension so the response describes the new body.
package transcode
