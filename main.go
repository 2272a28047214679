package main

import "github.com/caronae/caronae-dw/cmd"

func main() {
	cmd.Execute()
}
