package main

import "github.com/notargets/gosn/cmd"

func main() {
	cmd.Execute()
}
