package main

import "github.com/prosodylab/fluentcut/internal/cli"

func main() {
	cli.Main()
}
