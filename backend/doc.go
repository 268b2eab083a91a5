// Package backend defines the capability interfaces a GPU API must provide
// to share decoded video surfaces with the host renderer.
//
// A Backend opens one decode-side Device per player. The Device allocates
// Surfaces that the decoder draws into. When decode and present share one
// device the surfaces are directly Presentable; otherwise each surface
// implements Exporter and the device supplies an Importer that turns the
// exported native handle into a presentation-side resource. Rotation and
// locking live in package surface and never depend on which mechanism is in
// use.
//
// # Backend Registration
//
// Backends register themselves from init and are selected per host renderer
// by priority:
//
//	import _ "github.com/gogpu/framebridge/backend/halshare"
//
//	b, err := backend.Default().Select(backend.RendererVulkan, provider)
//
// # Available Backends
//
//   - "wgpu": textures on the host's wgpu HAL device (backend/halshare)
//   - "memfd": memfd shared memory with fd export (backend/memshare, Linux)
//   - "software": heap surfaces, always available
package backend
