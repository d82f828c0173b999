package document

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Registry routes paths to hosts by file extension.
type Registry struct {
	hosts map[string]Host
}

// NewRegistry registers hosts in order; a later host wins an extension
// claimed by an earlier one.
func NewRegistry(hosts ...Host) *Registry {
	r := &Registry{hosts: make(map[string]Host)}
	for _, h := range hosts {
		for _, ext := range h.Extensions() {
			r.hosts[strings.ToLower(ext)] = h
		}
	}
	return r
}

// HostFor returns the host responsible for path.
func (r *Registry) HostFor(path string) (Host, error) {
	ext := strings.ToLower(filepath.Ext(path))
	h, ok := r.hosts[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
	}
	return h, nil
}

// Supports reports whether some host handles path.
func (r *Registry) Supports(path string) bool {
	_, err := r.HostFor(path)
	return err == nil
}

// Open opens path with its host.
func (r *Registry) Open(path string) (Session, error) {
	h, err := r.HostFor(path)
	if err != nil {
		return nil, err
	}
	return h.Open(path)
}

// Create creates an empty document at path with its host.
func (r *Registry) Create(path string) error {
	h, err := r.HostFor(path)
	if err != nil {
		return err
	}
	c, ok := h.(Creator)
	if !ok {
		return fmt.Errorf("%w: %s host cannot create documents", ErrUnsupportedFormat, h.Name())
	}
	return c.Create(path)
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.hosts))
	for ext := range r.hosts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
