package main

import "github.com/theacharya/appcast-updater/cmd/appcast-updater/cmd"

func main() {
	cmd.Execute()
}
