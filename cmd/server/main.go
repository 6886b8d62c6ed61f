package main

import "github.com/bomanihosts/backend/cmd/server/cmd"

func main() {
	cmd.Execute()
}
