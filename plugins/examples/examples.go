//go:build smashplugin

// Build with: go build -tags smashplugin -buildmode=plugin -o greet.so ./plugins/examples
package main

import (
	"fmt"
	"io"
	"strings"
)

type greetPlugin struct{}

func (greetPlugin) Name() string {
	return "greet"
}

func (greetPlugin) Execute(args []string, out io.Writer) error {
	if len(args) == 0 {
		args = []string{"world"}
	}
	_, err := fmt.Fprintf(out, "hello, %s\n", strings.Join(args, " "))
	return err
}

var Plugin greetPlugin
