package main

import "github.com/kalungi/estate-management/cmd"

func main() {
	cmd.Execute()
}
