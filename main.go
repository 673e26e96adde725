package main

import "github.com/Davincible/llm-relay/cmd"

func main() {
	cmd.Execute()
}
