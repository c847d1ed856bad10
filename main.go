package main

import "github.com/KaramelBytes/tidyreport-cli/cmd"

func main() {
	cmd.Execute()
}
