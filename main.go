// The main package for the bookweaver executable.
package main

import "github.com/rclib/bookweaver/cmd"

func main() {
	cmd.Execute()
}
