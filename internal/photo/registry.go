package photo

import (
	"strings"
	"sync"

	"github.com/rs/xid"
)

// PreviewScheme prefixes locally allocated preview handles.
const PreviewScheme = "preview://"

// Registry holds the bytes behind preview handles of photos that were not
// uploaded yet. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	previews map[string][]byte
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{previews: make(map[string][]byte)}
}

// Allocate stores data and returns a fresh preview handle for it.
func (r *Registry) Allocate(data []byte) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle := PreviewScheme + xid.New().String()
	r.previews[handle] = data
	return handle
}

// Files allocates a preview for each file that has none yet.
func (r *Registry) Files(files []File) []File {
	out := make([]File, len(files))
	for i, f := range files {
		if f.Preview == "" {
			f.Preview = r.Allocate(f.Data)
		}
		out[i] = f
	}
	return out
}

// Lookup returns the bytes behind a handle.
func (r *Registry) Lookup(handle string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.previews[handle]
	return data, ok
}

// Release forgets a handle. Remote URLs and unknown handles are ignored.
func (r *Registry) Release(handle string) {
	if !IsPreview(handle) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.previews, handle)
}

// Reset releases every handle.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.previews)
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.previews)
}

// IsPreview reports whether url is a local preview handle.
func IsPreview(url string) bool {
	return strings.HasPrefix(url, PreviewScheme)
}
