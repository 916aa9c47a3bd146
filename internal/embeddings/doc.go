// Package embeddings maps text to fixed-length vectors.
//
// Three providers are available: FastEmbed (local ONNX models, requires cgo),
// OpenAI (remote, through langchaingo) and a dependency-free token hashing
// provider for offline use and tests. One provider is chosen at startup and
// shared by every request; Lazy defers model loading until the first call.
package embeddings
