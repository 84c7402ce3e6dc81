package main

import "os"

func main() {
	os.Exit(Execute(NewRootCommand(os.Stdout, os.Stderr), os.Args[1:]))
}
