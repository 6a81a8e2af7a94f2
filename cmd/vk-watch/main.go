package main

import (
	"context"

	"github.com/Sternrassler/vk-watch/cmd/vk-watch/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
