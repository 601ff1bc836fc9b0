// Package plugin loads extra built-in commands from Go plugins.
package plugin

import (
	"fmt"
	"io"
	"plugin"
)

// Plugin is a built-in provided by a shared object. Execute runs in the
// shell process and writes its output to out.
type Plugin interface {
	Name() string
	Execute(args []string, out io.Writer) error
}

// Load opens path and looks up its exported "Plugin" symbol.
func Load(path string) (Plugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin: %w", err)
	}

	symPlugin, err := p.Lookup("Plugin")
	if err != nil {
		return nil, fmt.Errorf("plugin does not export 'Plugin' symbol: %w", err)
	}

	plug, ok := symPlugin.(Plugin)
	if !ok {
		return nil, fmt.Errorf("plugin %s does not implement Plugin interface", path)
	}

	return plug, nil
}

// LoadAll loads every path, keyed by plugin name. The first failure aborts.
func LoadAll(paths []string) (map[string]Plugin, error) {
	plugins := make(map[string]Plugin, len(paths))
	for _, path := range paths {
		p, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		plugins[p.Name()] = p
	}
	return plugins, nil
}
