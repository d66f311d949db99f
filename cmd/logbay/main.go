package main

import "github.com/vkornev/logbay/internal/cmd"

func main() {
	cmd.Execute()
}
