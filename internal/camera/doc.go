// Package camera owns the camera-facing side of the pipeline.
//
// Responsibilities: the stream format, Bayer pattern and option taxonomies
// with their string encodings, the shared Frame value produced by the
// capture path, the dynamically loaded driver registry, and the actor that
// serialises all access to an open camera.
//
// Every configuration or setup failure in this package wraps ErrCamera.
package camera
