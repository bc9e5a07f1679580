package main

import "github.com/hnanmal/B-note/cmd"

func main() {
	cmd.Execute()
}
