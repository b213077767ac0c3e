package main

import "github.com/majak-app/candlesync/cmd"

func main() {
	cmd.Execute()
}
