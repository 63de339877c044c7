// Package module is the contract every mounted unit satisfies plus a
// process wide directory of the port bundles they expose
package module

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	phttp "litscreen/internal/platform/net/http"
)

// Module is what api.Mount and the worker binaries compose
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}

// Directory maps module names to their exported ports
type Directory struct {
	mu    sync.RWMutex
	ports map[string]any
}

var global = &Directory{}

// Put records ports under name, replacing any earlier bundle
func (d *Directory) Put(name string, ports any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ports == nil {
		d.ports = map[string]any{}
	}
	d.ports[name] = ports
}

// Get returns the raw bundle for name
func (d *Directory) Get(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.ports[name]
	return v, ok
}

// Names lists registered modules in sorted order
func (d *Directory) Names() []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.ports))
	for n := range d.ports {
		out = append(out, n)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Clear drops every bundle
func (d *Directory) Clear() {
	d.mu.Lock()
	d.ports = nil
	d.mu.Unlock()
}

// Register publishes a module's ports in the process directory
func Register(name string, ports any) { global.Put(name, ports) }

// Registered lists names in the process directory
func Registered() []string { return global.Names() }

// Reset empties the process directory
func Reset() { global.Clear() }

// PortsAs looks up name in the process directory and asserts T
func PortsAs[T any](name string) (T, bool) {
	var zero T
	v, ok := global.Get(name)
	if !ok {
		return zero, false
	}
	return find[T](v)
}

// PortsOf extracts T from m.Ports(), either the bundle itself or one of
// its exported fields. Pointer bundles are followed once
func PortsOf[T any](m Module) (T, bool) {
	return find[T](m.Ports())
}

// MustPortsOf is PortsOf that panics naming the module
func MustPortsOf[T any](m Module) T {
	v, ok := PortsOf[T](m)
	if !ok {
		var zero T
		panic(fmt.Sprintf("module %s: no port of type %T", m.Name(), &zero))
	}
	return v
}

func find[T any](bundle any) (T, bool) {
	var zero T
	if bundle == nil {
		return zero, false
	}
	if v, ok := bundle.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(bundle)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return zero, false
}
