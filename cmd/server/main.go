package main

import "github.com/Togather-Foundation/ewm/cmd/server/cmd"

func main() {
	cmd.Execute()
}
