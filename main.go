package main

import "github.com/edumentor/mentor-history/cmd/mentor-history/commands"

func main() {
	commands.Execute()
}
