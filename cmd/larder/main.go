// Command larder manages entities declared in config.yaml from the shell
// and over HTTP.
package main

import "github.com/mesh-intelligence/larder/internal/cli"

func main() {
	cli.Execute()
}
