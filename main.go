package main

import "github.com/polaris-im/telegram-relay/cmd"

func main() {
	cmd.Execute()
}
