// Package arena models a module's linear memory as an arena addressed by
// typed offsets.
//
// Raw slices into linear memory are only valid until the next call into the
// module, because any call may grow or move the memory. The arena enforces
// this with a generation counter:
//
//	view, _ := a.View(ptr, n)
//	inst.Call(ctx, ...)      // engine calls a.Invalidate()
//	_, err := view.Bytes()   // err: stale reference
//
// Read and the U32/U64 helpers copy out of memory and are always safe to keep.
package arena
