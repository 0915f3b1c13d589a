package main

import "github.com/bryanchriswhite/livewindow/cmd/livewindow/commands"

func main() {
	commands.Execute()
}
