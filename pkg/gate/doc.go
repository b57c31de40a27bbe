// Package gate implements conditional upscaling by tag. With an upscale
// tag configured, only images of books or series tagged with it (compared
// case-insensitively) are upscaled; without one every image is.
package gate
