package plugin

import "plugin"

// GoLoader opens artifacts built with -buildmode=plugin
type GoLoader struct{}

// Open loads the plugin at path. Loading the same path twice returns the
// already loaded plugin.
func (GoLoader) Open(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	return &goModule{p: p}, nil
}

type goModule struct {
	p *plugin.Plugin
}

func (m *goModule) Lookup(name string) (any, error) {
	return m.p.Lookup(name)
}

// Close drops the handle. Go cannot unmap a loaded plugin, so its code stays
// resident until the process exits.
func (m *goModule) Close() error {
	m.p = nil
	return nil
}
