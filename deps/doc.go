// Package deps fetches the dependency blobs a module lists during startup.
//
// HTTPFetcher resolves paths against a base URL with a resty client that
// never retries; DirFetcher reads them from a file system. FetchAll runs one
// bounded, concurrent batch and fails as a whole on the first error.
package deps
