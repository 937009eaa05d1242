package main

import "github.com/mvp-joe/hdlnav/internal/cli"

func main() {
	cli.Execute()
}
