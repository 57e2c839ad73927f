package main

import "github.com/Girls-Girls-Inc/wits-quest-sub001/cmd"

func main() {
	cmd.Execute()
}
