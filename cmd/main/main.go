package main

import "github.com/Another0Noob/mangadex-export/cmd"

func main() {
	cmd.Execute()
}
